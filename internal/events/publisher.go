package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers event envelopes to downstream consumers.
type Publisher interface {
	// Publish sends one envelope. The key controls partitioning; use the
	// order ID so events for one order stay ordered.
	Publish(ctx context.Context, key string, envelope Envelope) error

	// Close flushes and releases the underlying transport.
	Close() error
}

// NopPublisher discards all events. Used when eventing is disabled and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, key string, envelope Envelope) error { return nil }
func (NopPublisher) Close() error                                                     { return nil }

// KafkaPublisher writes envelopes to a kafka topic, hash-partitioned by
// key.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaPublisher creates a kafka-backed publisher.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger.With().Str("component", "event-publisher").Logger(),
	}
}

// Publish sends one envelope to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, envelope Envelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  envelope.OccurredAt,
	})
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("event_type", envelope.EventType).
			Str("key", key).
			Msg("failed to publish event")
		return fmt.Errorf("failed to publish %s event: %w", envelope.EventType, err)
	}

	p.logger.Debug().
		Str("event_type", envelope.EventType).
		Str("key", key).
		Msg("event published")

	return nil
}

// Close flushes buffered messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
