// Package metrics provides the service metrics surface: Prometheus
// counters for scrape-based monitoring, and a Redis-backed collector
// that publishes periodic JSON snapshots for the dashboard's service
// health view. The Redis collector is optional; without a Redis
// connection it is never started and handlers fall back to a no-op.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for service metric snapshots.
	KeyPrefix = "metrics:"
	// SnapshotTTL is how long a snapshot stays in Redis if not refreshed.
	SnapshotTTL = 2 * time.Minute
	// DefaultReportInterval is the default snapshot publishing interval.
	DefaultReportInterval = 30 * time.Second
)

// Snapshot is one point-in-time view of the service's counters.
type Snapshot struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"`

	WebhooksReceived uint64 `json:"webhooks_received"`
	EventsStored     uint64 `json:"events_stored"`
	EventsBroadcast  uint64 `json:"events_broadcast"`
	ProcessingErrors uint64 `json:"processing_errors"`

	EventsPerSecond    float64 `json:"events_per_second"`
	AvgIngestLatencyNs float64 `json:"avg_ingest_latency_ns"`

	CustomCounters map[string]uint64 `json:"custom_counters,omitempty"`
}

// Collector accumulates service counters and periodically publishes
// snapshots to Redis.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	webhooksReceived atomic.Uint64
	eventsStored     atomic.Uint64
	eventsBroadcast  atomic.Uint64
	processingErrors atomic.Uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	lastReportTime  time.Time
	lastStoredCount uint64

	customMu       sync.RWMutex
	customCounters map[string]*atomic.Uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a collector publishing under the given service name.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		lastReportTime: time.Now().UTC(),
		customCounters: make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// ConnectRedis creates and validates a Redis connection.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

// Start begins the periodic snapshot publishing.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.publish(context.Background())
				return
			case <-c.stopCh:
				c.publish(context.Background())
				return
			case <-ticker.C:
				c.publish(ctx)
			}
		}
	}()
}

// Stop stops the snapshot publishing after a final write.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// RecordReceived counts one webhook delivery.
func (c *Collector) RecordReceived() {
	c.webhooksReceived.Add(1)
}

// RecordProcessed counts one stored event with its ingest latency.
func (c *Collector) RecordProcessed(latency time.Duration) {
	c.eventsStored.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// RecordPublished counts one broadcast to live subscribers.
func (c *Collector) RecordPublished() {
	c.eventsBroadcast.Add(1)
}

// RecordError counts one processing error.
func (c *Collector) RecordError() {
	c.processingErrors.Add(1)
}

// IncrementCustom increments a named counter.
func (c *Collector) IncrementCustom(name string) {
	c.customMu.RLock()
	counter, exists := c.customCounters[name]
	c.customMu.RUnlock()

	if !exists {
		c.customMu.Lock()
		if counter, exists = c.customCounters[name]; !exists {
			counter = &atomic.Uint64{}
			c.customCounters[name] = counter
		}
		c.customMu.Unlock()
	}
	counter.Add(1)
}

// GetSnapshot returns current counters without publishing.
func (c *Collector) GetSnapshot() *Snapshot {
	now := time.Now().UTC()
	stored := c.eventsStored.Load()

	elapsed := now.Sub(c.lastReportTime).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(stored-c.lastStoredCount) / elapsed
	}

	var avgLatencyNs float64
	if n := c.latencyCount.Load(); n > 0 {
		avgLatencyNs = float64(c.totalLatencyNs.Load()) / float64(n)
	}

	c.customMu.RLock()
	custom := make(map[string]uint64, len(c.customCounters))
	for name, counter := range c.customCounters {
		custom[name] = counter.Load()
	}
	c.customMu.RUnlock()

	return &Snapshot{
		ServiceName:        c.serviceName,
		StartedAt:          c.startedAt,
		LastUpdated:        now,
		Status:             "healthy",
		WebhooksReceived:   c.webhooksReceived.Load(),
		EventsStored:       stored,
		EventsBroadcast:    c.eventsBroadcast.Load(),
		ProcessingErrors:   c.processingErrors.Load(),
		EventsPerSecond:    rate,
		AvgIngestLatencyNs: avgLatencyNs,
		CustomCounters:     custom,
	}
}

// publish writes the current snapshot to Redis with a TTL so stale
// services age out of the dashboard.
func (c *Collector) publish(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snap := c.GetSnapshot()
	c.lastReportTime = snap.LastUpdated
	c.lastStoredCount = snap.EventsStored

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics snapshot", "error", err)
		return
	}

	key := KeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, SnapshotTTL).Err(); err != nil {
		slog.Warn("Failed to write metrics snapshot to Redis", "key", key, "error", err)
	}
}
