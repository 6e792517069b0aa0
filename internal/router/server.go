// Package router provides HTTP routing configuration for the miles-api.
package router

import (
	"net/http"
	"time"

	"github.com/merakimiles/alerts/internal/handlers"
	"github.com/merakimiles/alerts/internal/metrics"
)

// NewServer creates a new HTTP server with the router configured.
// WriteTimeout is left unset: the SSE stream holds its response open
// indefinitely.
func NewServer(port string, h *handlers.Handlers, collector *metrics.Collector) *http.Server {
	router := NewRouter(h, collector)
	return &http.Server{
		Addr:        ":" + port,
		Handler:     router.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}
