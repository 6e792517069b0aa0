// Package handlers provides tests for the event query endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/merakimiles/alerts/internal/config"
	"github.com/merakimiles/alerts/internal/database"
)

func newQueryHandlers(store *mockStore) *Handlers {
	return NewHandlers(store, &mockStream{}, &mockImages{}, &config.Config{}, nil)
}

// TestHandleListEvents_FilterParsing tests query parameter translation.
func TestHandleListEvents_FilterParsing(t *testing.T) {
	var captured *database.Filter
	store := &mockStore{
		QueryFn: func(_ context.Context, f *database.Filter) (*database.EventPage, error) {
			captured = f
			return &database.EventPage{Items: []*database.Event{}}, nil
		},
	}
	h := newQueryHandlers(store)

	url := "/api/events?alertType=MV%20Motion,MX%20Offline&severity=Critical&severity=Info" +
		"&networkId=N_1&deviceSerial=Q2GV-1&since=2026-08-01T00:00:00Z&until=garbage&q=cam&limit=7&cursor=id-5"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.HandleListEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
	}
	if captured == nil {
		t.Fatal("store was not queried")
	}
	if len(captured.AlertTypes) != 2 || captured.AlertTypes[1] != "MX Offline" {
		t.Errorf("AlertTypes = %v", captured.AlertTypes)
	}
	if len(captured.Severities) != 2 {
		t.Errorf("Severities = %v", captured.Severities)
	}
	if captured.NetworkID != "N_1" || captured.DeviceSerial != "Q2GV-1" {
		t.Errorf("NetworkID=%q DeviceSerial=%q", captured.NetworkID, captured.DeviceSerial)
	}
	if captured.Since == nil || !captured.Since.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Since = %v", captured.Since)
	}
	if captured.Until != nil {
		t.Errorf("unparseable until = %v, want nil", captured.Until)
	}
	if captured.Query != "cam" || captured.Limit != 7 || captured.Cursor != "id-5" {
		t.Errorf("Query=%q Limit=%d Cursor=%q", captured.Query, captured.Limit, captured.Cursor)
	}
}

// TestHandleListEvents_ListParamForms tests that the bracket form of a
// list parameter is a fallback, not merged with the plain form.
func TestHandleListEvents_ListParamForms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "plain form wins over bracket form",
			query: "alertType=MV%20Motion&alertType[]=MX%20Offline",
			want:  []string{"MV Motion"},
		},
		{
			name:  "bracket form used when plain absent",
			query: "alertType[]=MX%20Offline&alertType[]=MV%20Motion",
			want:  []string{"MX Offline", "MV Motion"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *database.Filter
			store := &mockStore{
				QueryFn: func(_ context.Context, f *database.Filter) (*database.EventPage, error) {
					captured = f
					return &database.EventPage{Items: []*database.Event{}}, nil
				},
			}
			h := newQueryHandlers(store)

			req := httptest.NewRequest(http.MethodGet, "/api/events?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.HandleListEvents(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if !reflect.DeepEqual(captured.AlertTypes, tt.want) {
				t.Errorf("AlertTypes = %v, want %v", captured.AlertTypes, tt.want)
			}
		})
	}
}

// TestHandleListEvents_Response tests the response envelope.
func TestHandleListEvents_Response(t *testing.T) {
	next := "id-2"
	store := &mockStore{
		QueryFn: func(_ context.Context, f *database.Filter) (*database.EventPage, error) {
			return &database.EventPage{
				Items: []*database.Event{
					{ID: "id-4", DedupeKey: "k-4", AlertType: "MV Motion"},
					{ID: "id-3", DedupeKey: "k-3", AlertType: "MV Motion"},
				},
				NextCursor: &next,
			}, nil
		},
		CountFn: func(_ context.Context, f *database.Filter) (int, error) {
			return 5, nil
		},
	}
	h := newQueryHandlers(store)

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=2", nil)
	rec := httptest.NewRecorder()
	h.HandleListEvents(rec, req)

	var resp struct {
		Items      []json.RawMessage `json:"items"`
		Total      int               `json:"total"`
		NextCursor *string           `json:"nextCursor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(resp.Items) != 2 || resp.Total != 5 {
		t.Errorf("items=%d total=%d, want 2 and 5", len(resp.Items), resp.Total)
	}
	if resp.NextCursor == nil || *resp.NextCursor != "id-2" {
		t.Errorf("nextCursor = %v, want id-2", resp.NextCursor)
	}
}

// TestHandleListEvents_EmptyPage tests the null cursor and empty items array.
func TestHandleListEvents_EmptyPage(t *testing.T) {
	h := newQueryHandlers(&mockStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	h.HandleListEvents(rec, req)

	body := rec.Body.String()
	for _, want := range []string{`"items":[]`, `"nextCursor":null`} {
		if !strings.Contains(body, want) {
			t.Errorf("body = %s, want %s", body, want)
		}
	}
}

// TestHandleGetEvent tests single-event retrieval.
func TestHandleGetEvent(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		getFn      func(ctx context.Context, id string) (*database.Event, error)
		wantStatus int
	}{
		{
			name:       "found",
			path:       "/api/events/id-1",
			wantStatus: http.StatusOK,
		},
		{
			name: "not found",
			path: "/api/events/missing",
			getFn: func(_ context.Context, id string) (*database.Event, error) {
				return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "empty id",
			path:       "/api/events/",
			wantStatus: http.StatusNotFound,
		},
		{
			name: "store failure",
			path: "/api/events/id-1",
			getFn: func(_ context.Context, id string) (*database.Event, error) {
				return nil, fmt.Errorf("connection refused")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newQueryHandlers(&mockStore{GetFn: tt.getFn})
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			h.HandleGetEvent(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

// TestHandleAlertTypes tests the distinct listing envelope.
func TestHandleAlertTypes(t *testing.T) {
	store := &mockStore{
		DistinctAlertTypesFn: func(_ context.Context) ([]string, error) {
			return []string{"MV Motion Recap", "MX Offline"}, nil
		},
	}
	h := newQueryHandlers(store)

	req := httptest.NewRequest(http.MethodGet, "/api/alert-types", nil)
	rec := httptest.NewRecorder()
	h.HandleAlertTypes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"MV Motion Recap"`) {
		t.Errorf("body = %s", rec.Body)
	}
}
