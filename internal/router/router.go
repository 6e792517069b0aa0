// Package router provides HTTP routing configuration for the miles-api.
// It sets up routes and applies middleware like CORS.
package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/merakimiles/alerts/internal/handlers"
	"github.com/merakimiles/alerts/internal/metrics"
)

// Router wraps the HTTP mux and provides route configuration.
type Router struct {
	mux       *http.ServeMux
	handlers  *handlers.Handlers
	collector *metrics.Collector
}

// NewRouter creates a new router with all routes configured. The
// collector may be nil, disabling the service metrics middleware.
func NewRouter(h *handlers.Handlers, collector *metrics.Collector) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		handlers:  h,
		collector: collector,
	}
	r.setupRoutes()
	return r
}

// setupRoutes configures all HTTP routes for the API.
func (r *Router) setupRoutes() {
	// Webhook receiver
	r.mux.HandleFunc("/api/webhooks/meraki", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			r.handlers.HandleWebhook(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Event query endpoints
	r.mux.HandleFunc("/api/events", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet {
			r.handlers.HandleListEvents(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.mux.HandleFunc("/api/events/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet {
			r.handlers.HandleGetEvent(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	r.mux.HandleFunc("/api/alert-types", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet {
			r.handlers.HandleAlertTypes(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Live stream
	r.mux.HandleFunc("/api/stream", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet {
			r.handlers.HandleStream(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Image proxy
	r.mux.HandleFunc("/api/img", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet {
			r.handlers.HandleImage(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Admin endpoints
	r.mux.HandleFunc("/api/admin/seed", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			r.handlers.HandleSeed(w, req)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Prometheus exposition
	r.mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	r.mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})
}

// Handler returns the HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	return corsMiddleware(metricsMiddleware(r.collector)(r.mux))
}
