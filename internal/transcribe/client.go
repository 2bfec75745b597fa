// Package transcribe sends captured speech to an OpenAI-compatible
// transcription endpoint.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/roimerbautista/alkaris/internal/connectivity"
	"github.com/roimerbautista/alkaris/internal/pipeline"
	"github.com/sony/gobreaker"
)

// Config configures the transcription client.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
	OnBreakerChange func(name string, to gobreaker.State)
}

// Client transcribes WAV files. Calls are guarded by a circuit breaker that
// opens after consecutive service failures.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New constructs a transcription client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("transcription api key is empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.AudioModelWhisper1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		api:     openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  logger,
		breaker: connectivity.NewBreaker(connectivity.BreakerSettings{
			Name:     "transcription",
			Failures: cfg.BreakerFailures,
			Cooldown: cfg.BreakerCooldown,
			Counts:   func(err error) bool { return errors.Is(err, pipeline.ErrServiceUnavailable) },
			OnChange: cfg.OnBreakerChange,
			Logger:   logger,
		}),
	}, nil
}

// Transcribe uploads the WAV at path with the language part of locale.
func (c *Client) Transcribe(ctx context.Context, path string, locale string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.transcribe(ctx, path, locale)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", pipeline.ErrServiceUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) transcribe(ctx context.Context, path string, locale string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio %q: %w", path, err)
	}
	defer file.Close()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.AudioTranscriptionNewParams{
		File:  file,
		Model: c.model,
	}
	if lang := Language(locale); lang != "" {
		params.Language = openai.String(lang)
	}

	started := time.Now()
	resp, err := c.api.Audio.Transcriptions.New(callCtx, params)
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text)
	c.logger.Debug("transcription complete", "latency_ms", time.Since(started).Milliseconds(), "chars", len(text))
	if text == "" {
		return "", pipeline.ErrUnintelligible
	}
	return text, nil
}

// Language returns the ISO-639-1 part of a locale tag such as es-ES.
func Language(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}

// classify maps transport and API failures onto the pipeline taxonomy.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", pipeline.ErrUnintelligible, err)
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", pipeline.ErrServiceUnavailable, err)
		}
		return fmt.Errorf("transcription request: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", pipeline.ErrServiceUnavailable, err)
	}
	return fmt.Errorf("transcription request: %w", err)
}
