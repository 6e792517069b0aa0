// Package handlers provides HTTP handlers for the miles-api service.
package handlers

import (
	"context"
	"time"

	"github.com/merakimiles/alerts/internal/database"
)

// EventStore defines the store operations handlers depend on.
// This allows handlers to be tested without a real database.
type EventStore interface {
	Upsert(ctx context.Context, ev *database.NewEvent) (*database.Event, error)
	Get(ctx context.Context, id string) (*database.Event, error)
	Query(ctx context.Context, f *database.Filter) (*database.EventPage, error)
	Count(ctx context.Context, f *database.Filter) (int, error)
	DistinctAlertTypes(ctx context.Context) ([]string, error)
}

// EventStream is the live subscriber registry: streaming connections
// register for serialized event frames, stored events are broadcast to
// every registered connection.
type EventStream interface {
	Register() (uint64, <-chan []byte)
	Unregister(id uint64)
	Broadcast(event interface{})
}

// EventPublisher mirrors stored events to an external topic.
// Publishing failures never affect the webhook response.
type EventPublisher interface {
	Publish(ctx context.Context, ev *database.Event) error
}

// ImageGetter serves image bytes for a URL, from cache or origin.
type ImageGetter interface {
	Get(ctx context.Context, url string) (body []byte, contentType string, err error)
}

// MetricsRecorder defines the interface for recording service metrics.
// This uses the null object pattern - a no-op implementation avoids nil checks.
type MetricsRecorder interface {
	RecordReceived()
	RecordProcessed(latency time.Duration)
	RecordPublished()
	RecordError()
	IncrementCustom(name string)
}

// NoOpMetrics is a no-op implementation of MetricsRecorder.
type NoOpMetrics struct{}

var _ MetricsRecorder = (*NoOpMetrics)(nil)

func (NoOpMetrics) RecordReceived()                 {}
func (NoOpMetrics) RecordProcessed(_ time.Duration) {}
func (NoOpMetrics) RecordPublished()                {}
func (NoOpMetrics) RecordError()                    {}
func (NoOpMetrics) IncrementCustom(_ string)        {}
