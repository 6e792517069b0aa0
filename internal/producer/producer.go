// Package producer provides the optional Kafka event mirror. When
// brokers are configured, every stored event is additionally published
// to a topic for downstream consumers; the in-process stream remains
// the delivery path for dashboards.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/merakimiles/alerts/internal/database"
)

// writeTimeout is the maximum time to wait for a Kafka write operation.
const writeTimeout = 10 * time.Second

// Producer wraps a Kafka writer publishing stored events.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer with the specified brokers
// and topic, configured for synchronous at-least-once writes.
func NewProducer(brokers string, topic string) (*Producer, error) {
	if brokers == "" {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	slog.Info("Initializing Kafka event mirror",
		"brokers", brokerList,
		"topic", topic,
	)

	// Best effort; the topic may need to be created manually.
	createTopicIfNotExists(brokerList[0], topic)

	// Key by dedupe key so redeliveries of one alert land on one partition.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{writer: writer, topic: topic}, nil
}

// Publish serializes a stored event to JSON and publishes it, keyed by
// dedupe key.
func (p *Producer) Publish(ctx context.Context, ev *database.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.DedupeKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "alert_type", Value: []byte(ev.AlertType)},
			{Key: "event_id", Value: []byte(ev.ID)},
		},
		Time: ev.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	slog.Debug("Mirrored event to Kafka",
		"event_id", ev.ID,
		"dedupe_key", ev.DedupeKey,
		"topic", p.topic,
	)
	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka event mirror", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka writer", "error", err)
		return err
	}
	return nil
}

// createTopicIfNotExists attempts to create the topic on the first
// broker. Failures are logged and ignored.
func createTopicIfNotExists(broker, topic string) {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		slog.Warn("Could not connect to Kafka to check/create topic",
			"broker", broker,
			"topic", topic,
			"error", err,
		)
		return
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err == nil && len(partitions) > 0 {
		return
	}

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		slog.Warn("Could not create Kafka topic", "topic", topic, "error", err)
		return
	}
	slog.Info("Created Kafka topic", "topic", topic)
}
