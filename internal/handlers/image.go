// Package handlers provides HTTP handlers for the miles-api service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/merakimiles/alerts/internal/imagecache"
)

// HandleImage proxies a remote image through the short-term cache,
// keeping origin URLs out of the browser.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}

	body, contentType, err := h.images.Get(r.Context(), rawURL)
	if err != nil {
		switch {
		case errors.Is(err, imagecache.ErrBadURL):
			writeError(w, http.StatusBadRequest, "invalid url")
		case errors.Is(err, imagecache.ErrUpstream):
			writeError(w, http.StatusBadGateway, "fetch failed")
		default:
			slog.Error("Image proxy error", "url", rawURL, "error", err)
			writeError(w, http.StatusInternalServerError, "proxy error")
		}
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("Failed to write image response", "error", err)
	}
}
