// Package handlers provides HTTP handlers for the miles-api service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/merakimiles/alerts/internal/database"
)

// eventListResponse is the paginated query response.
type eventListResponse struct {
	Items      []*database.Event `json:"items"`
	Total      int               `json:"total"`
	NextCursor *string           `json:"nextCursor"`
}

// HandleListEvents serves the filtered, cursor-paginated event query.
func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()

	f := &database.Filter{
		AlertTypes:   parseList(qp, "alertType"),
		Severities:   parseList(qp, "severity"),
		NetworkID:    qp.Get("networkId"),
		DeviceSerial: qp.Get("deviceSerial"),
		Since:        parseTimeParam(qp.Get("since")),
		Until:        parseTimeParam(qp.Get("until")),
		Query:        qp.Get("q"),
		Cursor:       qp.Get("cursor"),
	}
	if limit, err := strconv.Atoi(qp.Get("limit")); err == nil {
		f.Limit = limit
	}

	page, err := h.store.Query(r.Context(), f)
	if err != nil {
		slog.Error("Failed to query events", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	total, err := h.store.Count(r.Context(), f)
	if err != nil {
		slog.Error("Failed to count events", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, eventListResponse{
		Items:      page.Items,
		Total:      total,
		NextCursor: page.NextCursor,
	})
}

// HandleGetEvent serves a single event by path identifier.
func (h *Handlers) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	ev, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		slog.Error("Failed to get event", "event_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleAlertTypes serves the distinct alert type listing.
func (h *Handlers) HandleAlertTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.DistinctAlertTypes(r.Context())
	if err != nil {
		slog.Error("Failed to list alert types", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"items": types})
}

// parseList reads a repeatable or comma-separated query parameter. The
// bracket form ("name[]") is consulted only when the plain name is absent.
func parseList(qp url.Values, name string) []string {
	var values []string
	raw := qp[name]
	if len(raw) == 0 {
		raw = qp[name+"[]"]
	}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

// parseTimeParam reads an ISO-8601 query parameter; unparseable values
// are treated as absent.
func parseTimeParam(v string) *time.Time {
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	return nil
}
