// Package handlers provides test mocks for handler dependencies.
package handlers

import (
	"context"
	"sync"

	"github.com/merakimiles/alerts/internal/database"
)

// mockStore implements EventStore for testing. Set the callback
// fields to control behavior; unset callbacks return benign defaults.
type mockStore struct {
	UpsertFn             func(ctx context.Context, ev *database.NewEvent) (*database.Event, error)
	GetFn                func(ctx context.Context, id string) (*database.Event, error)
	QueryFn              func(ctx context.Context, f *database.Filter) (*database.EventPage, error)
	CountFn              func(ctx context.Context, f *database.Filter) (int, error)
	DistinctAlertTypesFn func(ctx context.Context) ([]string, error)

	mu      sync.Mutex
	upserts []*database.NewEvent
}

func (m *mockStore) Upsert(ctx context.Context, ev *database.NewEvent) (*database.Event, error) {
	m.mu.Lock()
	m.upserts = append(m.upserts, ev)
	m.mu.Unlock()
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, ev)
	}
	return &database.Event{
		ID:         "id-1",
		DedupeKey:  ev.DedupeKey,
		OccurredAt: ev.OccurredAt,
		AlertType:  ev.AlertType,
		Severity:   ev.Severity,
		Details:    ev.Details,
		Raw:        ev.Raw,
	}, nil
}

func (m *mockStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

func (m *mockStore) Get(ctx context.Context, id string) (*database.Event, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return &database.Event{ID: id, DedupeKey: "k-" + id, AlertType: "MV Motion"}, nil
}

func (m *mockStore) Query(ctx context.Context, f *database.Filter) (*database.EventPage, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, f)
	}
	return &database.EventPage{Items: []*database.Event{}}, nil
}

func (m *mockStore) Count(ctx context.Context, f *database.Filter) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx, f)
	}
	return 0, nil
}

func (m *mockStore) DistinctAlertTypes(ctx context.Context) ([]string, error) {
	if m.DistinctAlertTypesFn != nil {
		return m.DistinctAlertTypesFn(ctx)
	}
	return []string{}, nil
}

// mockStream implements EventStream, recording broadcasts.
type mockStream struct {
	mu         sync.Mutex
	broadcasts []interface{}
}

func (m *mockStream) Register() (uint64, <-chan []byte) {
	return 1, make(chan []byte)
}

func (m *mockStream) Unregister(id uint64) {}

func (m *mockStream) Broadcast(event interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, event)
}

func (m *mockStream) broadcastCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.broadcasts)
}

// mockImages implements ImageGetter.
type mockImages struct {
	GetFn func(ctx context.Context, url string) ([]byte, string, error)
}

func (m *mockImages) Get(ctx context.Context, url string) ([]byte, string, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, url)
	}
	return []byte("png"), "image/png", nil
}

// mockPublisher implements EventPublisher, recording published events.
type mockPublisher struct {
	mu        sync.Mutex
	published []*database.Event
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, ev *database.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, ev)
	return m.err
}
