// Package stream provides tests for the live subscriber registry.
package stream

import (
	"strings"
	"testing"
)

// TestHub_Broadcast tests delivery to all registered subscribers.
func TestHub_Broadcast(t *testing.T) {
	h := NewHub()

	_, ch1 := h.Register()
	_, ch2 := h.Register()
	_, ch3 := h.Register()

	h.Broadcast(map[string]string{"id": "ev-1"})

	for i, ch := range []<-chan []byte{ch1, ch2, ch3} {
		select {
		case data := <-ch:
			if !strings.Contains(string(data), "ev-1") {
				t.Errorf("subscriber %d received %s", i, data)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

// TestHub_LateJoiner tests that a subscriber registered after a
// broadcast does not receive it retroactively.
func TestHub_LateJoiner(t *testing.T) {
	h := NewHub()
	h.Broadcast(map[string]string{"id": "ev-1"})

	_, ch := h.Register()
	select {
	case data := <-ch:
		t.Errorf("late joiner received %s", data)
	default:
	}
}

// TestHub_Unregister tests removal and idempotent unregistration.
func TestHub_Unregister(t *testing.T) {
	h := NewHub()
	id, ch := h.Register()
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}

	h.Unregister(id)
	h.Unregister(id) // second call is a no-op
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}

	if _, open := <-ch; open {
		t.Error("channel still open after unregister")
	}

	// Broadcast after unregister must not panic or deliver.
	h.Broadcast(map[string]string{"id": "ev-2"})
}

// TestHub_SlowSubscriber tests that a full subscriber buffer does not
// block the broadcaster or other subscribers.
func TestHub_SlowSubscriber(t *testing.T) {
	h := NewHub()
	_, slow := h.Register()
	_, fast := h.Register()

	// Overflow the slow subscriber's buffer without draining it.
	for i := 0; i < subscriberBuffer+5; i++ {
		h.Broadcast(map[string]int{"n": i})
	}

	if len(slow) != subscriberBuffer {
		t.Errorf("slow buffer = %d, want %d", len(slow), subscriberBuffer)
	}

	drained := 0
	for {
		select {
		case <-fast:
			drained++
			continue
		default:
		}
		break
	}
	if drained != subscriberBuffer {
		t.Errorf("fast subscriber drained %d frames, want %d", drained, subscriberBuffer)
	}
}
