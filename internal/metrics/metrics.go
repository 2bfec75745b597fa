// Package metrics exposes the assistant's Prometheus instruments.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Metrics owns one registry so tests and the daemon never share global state.
type Metrics struct {
	registry *prometheus.Registry

	outcomes      *prometheus.CounterVec
	transcription prometheus.Histogram
	commands      *prometheus.CounterVec
	unmatched     prometheus.Counter
	tasksInFlight prometheus.Gauge
	taskDuration  prometheus.Histogram
	gestures      *prometheus.CounterVec
	breaker       *prometheus.GaugeVec
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alkaris_recognition_outcomes_total",
			Help: "Recognition attempts by final pipeline stage.",
		}, []string{"stage"}),
		transcription: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "alkaris_transcription_seconds",
			Help:    "Latency of remote transcription calls.",
			Buckets: prometheus.DefBuckets,
		}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alkaris_commands_total",
			Help: "Dispatched commands by canonical command and execution class.",
		}, []string{"command", "class"}),
		unmatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "alkaris_unmatched_commands_total",
			Help: "Recognized utterances that matched no synonym.",
		}),
		tasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alkaris_background_tasks_in_flight",
			Help: "Background tasks currently running.",
		}),
		taskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "alkaris_background_task_seconds",
			Help:    "Duration of background tasks.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		gestures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alkaris_gestures_total",
			Help: "Gesture observations by result.",
		}, []string{"gesture", "result"}),
		breaker: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alkaris_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
	}
}

// Registry returns the backing registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveOutcome(stage string) {
	m.outcomes.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveTranscription(d time.Duration) {
	m.transcription.Observe(d.Seconds())
}

func (m *Metrics) ObserveCommand(command string, class string) {
	m.commands.WithLabelValues(command, class).Inc()
}

func (m *Metrics) ObserveUnmatched() {
	m.unmatched.Inc()
}

// TaskStarted increments the in-flight gauge.
func (m *Metrics) TaskStarted() {
	m.tasksInFlight.Inc()
}

// TaskFinished decrements the in-flight gauge and records d.
func (m *Metrics) TaskFinished(d time.Duration) {
	m.tasksInFlight.Dec()
	m.taskDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveGesture(gesture string, result string) {
	m.gestures.WithLabelValues(gesture, result).Inc()
}

// ObserveBreaker records a breaker state change.
func (m *Metrics) ObserveBreaker(name string, state gobreaker.State) {
	m.breaker.WithLabelValues(name).Set(float64(state))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", addr, err)
	}
	return m.serve(ctx, listener, logger)
}

func (m *Metrics) serve(ctx context.Context, listener net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
