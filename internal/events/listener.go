package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// EventStore persists consumed interaction events.
type EventStore interface {
	Insert(ctx context.Context, event *domain.InteractionEvent) error
}

// ProfileApplier folds an interaction event into a user profile.
type ProfileApplier interface {
	Apply(ctx context.Context, event domain.InteractionEvent) error
}

// messageReader is the kafka.Reader subset the listener uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Listener consumes interaction events and applies them: the event is
// persisted first, then folded into the user's interest profile. A
// malformed or failing message is logged and skipped, never fatal.
type Listener struct {
	reader   messageReader
	store    EventStore
	profiles ProfileApplier
	logger   zerolog.Logger
}

// NewListener creates a Listener over the configured topic and consumer
// group.
func NewListener(cfg config.KafkaConfig, store EventStore, profiles ProfileApplier, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})

	return newListener(reader, store, profiles, logger)
}

func newListener(reader messageReader, store EventStore, profiles ProfileApplier, logger zerolog.Logger) *Listener {
	return &Listener{
		reader:   reader,
		store:    store,
		profiles: profiles,
		logger:   logger.With().Str("component", "event_listener").Logger(),
	}
}

// Run starts the consume loop and blocks until the context is
// cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting interaction event listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("event listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		var event domain.InteractionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.logger.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to unmarshal interaction event, skipping")
			continue
		}

		if err := l.handle(ctx, event); err != nil {
			l.logger.Error().Err(err).
				Str("user_id", event.UserID).
				Str("paper_id", event.PaperID.String()).
				Msg("failed to handle interaction event")
		}
	}
}

// handle persists the event and folds it into the profile. Insert is
// idempotent on the event ID, so redelivery is safe.
func (l *Listener) handle(ctx context.Context, event domain.InteractionEvent) error {
	if err := l.store.Insert(ctx, &event); err != nil {
		return err
	}
	return l.profiles.Apply(ctx, event)
}

// Close closes the underlying reader.
func (l *Listener) Close() error {
	return l.reader.Close()
}
