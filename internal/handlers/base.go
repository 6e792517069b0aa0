// Package handlers provides HTTP handlers for the miles-api service.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/merakimiles/alerts/internal/config"
	"github.com/merakimiles/alerts/internal/metrics"
)

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	store   EventStore
	hub     EventStream
	images  ImageGetter
	mirror  EventPublisher // nil when no brokers are configured
	metrics MetricsRecorder
	now     func() time.Time

	sharedSecret        string
	headerName          string
	expectedHeaderValue string
	adminToken          string
	allowedIPs          []string
}

// Option is a functional option for configuring Handlers.
type Option func(*Handlers)

// WithMetrics sets a custom metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(h *Handlers) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithMirror sets the outbound event publisher.
func WithMirror(p EventPublisher) Option {
	return func(h *Handlers) {
		h.mirror = p
	}
}

// WithClock overrides the receipt-time clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandlers creates a new handlers instance. The metrics collector
// may be nil, in which case a no-op recorder is used.
func NewHandlers(store EventStore, hub EventStream, images ImageGetter, cfg *config.Config, collector *metrics.Collector, opts ...Option) *Handlers {
	h := &Handlers{
		store:   store,
		hub:     hub,
		images:  images,
		metrics: NoOpMetrics{},
		now:     time.Now,

		sharedSecret:        cfg.SharedSecret,
		headerName:          cfg.HeaderName,
		expectedHeaderValue: cfg.ExpectedHeaderValue,
		adminToken:          cfg.AdminToken,
		allowedIPs:          cfg.AllowedIPs(),
	}

	if collector != nil {
		h.metrics = collector
	}

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// writeJSON serializes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// writeError writes a JSON error body, matching the dashboard contract.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
