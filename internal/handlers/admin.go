// Package handlers provides HTTP handlers for the miles-api service.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/merakimiles/alerts/internal/normalize"
	"github.com/merakimiles/alerts/internal/seed"
)

// HandleSeed inserts the fixed sample events through the normal
// normalize-upsert-broadcast path. Requires the admin bearer token;
// with no token configured every request is rejected.
func (h *Handlers) HandleSeed(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if h.adminToken == "" || auth != "Bearer "+h.adminToken {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	inserted := 0
	for _, payload := range seed.SamplePayloads(h.now(), h.sharedSecret) {
		rawBody, err := json.Marshal(payload)
		if err != nil {
			slog.Error("Failed to marshal seed payload", "error", err)
			continue
		}

		dedupeKey := normalize.DedupeKey(payload, rawBody)
		ev := normalize.MapPayload(payload, dedupeKey, h.now())

		stored, err := h.store.Upsert(r.Context(), ev)
		if err != nil {
			slog.Error("Failed to seed event", "dedupe_key", dedupeKey, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		h.fanOut(r.Context(), stored)
		inserted++
	}

	writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}
