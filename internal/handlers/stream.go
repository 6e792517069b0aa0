// Package handlers provides HTTP handlers for the miles-api service.
package handlers

import (
	"fmt"
	"net/http"
	"time"
)

// keepaliveInterval is how often an idle stream emits a comment frame
// so intermediary proxies do not time out the connection.
const keepaliveInterval = 15 * time.Second

// HandleStream serves the Server-Sent Events live stream. Each stored
// event is delivered as an "event: event" frame with the JSON event as
// data; idle connections receive periodic comment-only keepalives.
// Connections open at broadcast time receive the event; late joiners
// receive nothing retroactively.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, ch := h.hub.Register()
	defer h.hub.Unregister(id)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: event\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
