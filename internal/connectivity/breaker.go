package connectivity

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures a consecutive-failure circuit breaker.
type BreakerSettings struct {
	Name     string
	Failures int
	Cooldown time.Duration
	// Counts reports whether err is a failure that should trip the breaker.
	// Nil counts every non-nil error.
	Counts func(err error) bool
	// OnChange observes state transitions.
	OnChange func(name string, to gobreaker.State)
	Logger   *slog.Logger
}

// NewBreaker builds a breaker that opens after Failures consecutive
// failures and half-opens after Cooldown.
func NewBreaker(s BreakerSettings) *gobreaker.CircuitBreaker {
	failures := s.Failures
	if failures <= 0 {
		failures = 3
	}
	cooldown := s.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if s.Logger != nil {
				s.Logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
			if s.OnChange != nil {
				s.OnChange(name, to)
			}
		},
	}
	if s.Counts != nil {
		counts := s.Counts
		settings.IsSuccessful = func(err error) bool {
			return err == nil || !counts(err)
		}
	}
	return gobreaker.NewCircuitBreaker(settings)
}
