// Package handlers provides tests for the SSE stream endpoint.
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/merakimiles/alerts/internal/config"
)

// fakeStream hands the handler a channel the test controls and records
// whether the subscription was released.
type fakeStream struct {
	ch           chan []byte
	unregistered atomic.Bool
}

func (f *fakeStream) Register() (uint64, <-chan []byte) { return 7, f.ch }

func (f *fakeStream) Unregister(id uint64) { f.unregistered.Store(true) }

func (f *fakeStream) Broadcast(event interface{}) {}

// TestHandleStream_Frames tests that broadcast payloads arrive as SSE
// event frames and the subscription is released on disconnect.
func TestHandleStream_Frames(t *testing.T) {
	stream := &fakeStream{ch: make(chan []byte, 2)}
	h := NewHandlers(&mockStore{}, stream, &mockImages{}, &config.Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	stream.ch <- []byte(`{"id":"e1"}`)
	stream.ch <- []byte(`{"id":"e2"}`)

	done := make(chan struct{})
	go func() {
		h.HandleStream(rec, req)
		close(done)
	}()

	// Let the handler drain both frames, then disconnect.
	deadline := time.After(2 * time.Second)
	for len(stream.ch) > 0 {
		select {
		case <-deadline:
			t.Fatal("handler did not consume frames")
		case <-time.After(10 * time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after disconnect")
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: event\ndata: {\"id\":\"e1\"}\n\n") {
		t.Errorf("first frame missing from body %q", body)
	}
	if !strings.Contains(body, "event: event\ndata: {\"id\":\"e2\"}\n\n") {
		t.Errorf("second frame missing from body %q", body)
	}
	if !stream.unregistered.Load() {
		t.Error("subscription not released on disconnect")
	}
}

// TestHandleStream_ClosedChannel tests that the handler returns when
// the hub closes the subscriber channel.
func TestHandleStream_ClosedChannel(t *testing.T) {
	stream := &fakeStream{ch: make(chan []byte)}
	h := NewHandlers(&mockStore{}, stream, &mockImages{}, &config.Config{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.HandleStream(rec, req)
		close(done)
	}()

	close(stream.ch)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after channel close")
	}
}
