// Package handlers provides HTTP handlers for the miles-api service.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/merakimiles/alerts/internal/database"
	"github.com/merakimiles/alerts/internal/metrics"
	"github.com/merakimiles/alerts/internal/normalize"
)

// mirrorTimeout bounds the outbound Kafka publish so a broker outage
// cannot stall webhook acknowledgment indefinitely.
const mirrorTimeout = 5 * time.Second

// HandleWebhook receives a vendor webhook delivery. The validation
// sequence is IP allowlist, content type, then secret; each failure is
// a distinct rejection with no store mutation. Past validation the
// sender is always acknowledged with 200: persistence errors are
// logged and swallowed so a transient local failure never triggers a
// vendor-side retry storm.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.WebhooksReceived.Inc()

	if !h.ipAllowed(r) {
		metrics.WebhooksRejected.WithLabelValues("ip").Inc()
		writeError(w, http.StatusForbidden, "Forbidden (IP not allowed)")
		return
	}

	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		metrics.WebhooksRejected.WithLabelValues("content_type").Inc()
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported Media Type")
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.WebhooksRejected.WithLabelValues("body").Inc()
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		metrics.WebhooksRejected.WithLabelValues("body").Inc()
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !h.verifySecret(r, payload) {
		metrics.WebhooksRejected.WithLabelValues("secret").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid secret")
		return
	}

	dedupeKey := normalize.DedupeKey(payload, rawBody)
	ev := normalize.MapPayload(payload, dedupeKey, h.now())

	stored, err := h.store.Upsert(r.Context(), ev)
	if err != nil {
		// Always ack quickly; the dedupe key makes the vendor's own
		// retries idempotent once the store recovers.
		slog.Error("Failed to persist webhook event", "dedupe_key", dedupeKey, "error", err)
		metrics.StoreErrors.Inc()
		h.metrics.RecordError()
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	metrics.EventsStored.Inc()

	h.fanOut(r.Context(), stored)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// fanOut delivers a stored event to live subscribers and, when
// configured, mirrors it to Kafka. Neither path affects the HTTP
// response.
func (h *Handlers) fanOut(ctx context.Context, stored *database.Event) {
	h.hub.Broadcast(stored)
	h.metrics.RecordPublished()

	if h.mirror != nil {
		mirrorCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := h.mirror.Publish(mirrorCtx, stored); err != nil {
			slog.Warn("Failed to mirror event", "event_id", stored.ID, "error", err)
		}
	}
}

// ipAllowed checks the derived client IPs against the configured
// allowlist. An empty allowlist allows any IP.
func (h *Handlers) ipAllowed(r *http.Request) bool {
	if len(h.allowedIPs) == 0 {
		return true
	}
	for _, ip := range clientIPs(r) {
		for _, allowed := range h.allowedIPs {
			if ip == allowed {
				return true
			}
		}
	}
	return false
}

// clientIPs derives the candidate client IPs: the X-Forwarded-For
// chain in order, then the socket address.
func clientIPs(r *http.Request) []string {
	var ips []string
	for _, ip := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips = append(ips, ip)
		}
	}
	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ips = append(ips, host)
	}
	return ips
}

// verifySecret accepts the delivery if the configured header carries
// the expected value, or the body carries the configured shared
// secret. With neither configured every delivery is rejected; no
// verification method means reject, not allow-all.
func (h *Handlers) verifySecret(r *http.Request, payload map[string]interface{}) bool {
	if h.headerName != "" && h.expectedHeaderValue != "" &&
		r.Header.Get(h.headerName) == h.expectedHeaderValue {
		return true
	}
	if h.sharedSecret != "" {
		if s, ok := payload["sharedSecret"].(string); ok && s == h.sharedSecret {
			return true
		}
	}
	return false
}
