// Package events carries user interaction events over Kafka. The API
// server publishes one message per interaction; the worker consumes
// them, persists the event, and folds it into the user's interest
// profile.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Publisher writes interaction events to the configured topic.
type Publisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// messageWriter is the kafka.Writer subset the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewPublisher creates a Publisher from Kafka configuration.
func NewPublisher(cfg config.KafkaConfig, logger zerolog.Logger) *Publisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends one interaction event. Messages are keyed by user ID so
// one user's events stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, event *domain.InteractionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish interaction event: %w", err)
	}

	p.logger.Debug().
		Str("user_id", event.UserID).
		Str("paper_id", event.PaperID.String()).
		Str("action", string(event.Action)).
		Msg("interaction event published")

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
