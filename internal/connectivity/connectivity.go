// Package connectivity checks network reachability and paces retries after
// remote services fail.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrOffline indicates the reachability probe failed.
var ErrOffline = errors.New("network unreachable")

// Checker probes a well-known URL and waits a flat delay between retries.
// When GRPCTarget is set, recovery also health-checks that gateway.
type Checker struct {
	ProbeURL   string
	GRPCTarget string
	Timeout    time.Duration
	Backoff    time.Duration
	Client     *http.Client
	Logger     *slog.Logger
}

// Check issues one GET against ProbeURL. Any response below 500 counts as online.
func (c Checker) Check(ctx context.Context) error {
	url := strings.TrimSpace(c.ProbeURL)
	if url == "" {
		return errors.New("connectivity probe url is empty")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: probe returned %d", ErrOffline, resp.StatusCode)
	}
	return nil
}

// Wait sleeps for the flat backoff delay or until ctx is done.
func (c Checker) Wait(ctx context.Context) error {
	delay := c.Backoff
	if delay <= 0 {
		delay = 5 * time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recover runs after a service-unavailable failure: it reports whether the
// network and the gateway are reachable, then waits the backoff delay before the caller retries.
func (c Checker) Recover(ctx context.Context) error {
	if err := c.Check(ctx); err != nil {
		c.log().Warn("network check failed", "error", err.Error())
	} else {
		c.log().Info("network reachable; remote service unavailable")
	}
	if target := strings.TrimSpace(c.GRPCTarget); target != "" {
		if err := ProbeGRPC(ctx, target, c.Timeout); err != nil {
			c.log().Warn("speech gateway unhealthy", "target", target, "error", err.Error())
		} else {
			c.log().Info("speech gateway serving", "target", target)
		}
	}
	return c.Wait(ctx)
}

func (c Checker) log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
