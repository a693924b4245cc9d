package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bidout/pkg/database"
)

// OutboxStatus defines the status of an event in the outbox
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Exchange is the topic exchange every outbox event is relayed to.
const Exchange = "bidout.events"

// OutboxEvent is a row of outbox_events. Payload is a protobuf-encoded
// google.protobuf.Struct, see EncodePayload.
type OutboxEvent struct {
	ID          uuid.UUID    `db:"id"`
	EventType   string       `db:"event_type"`
	Payload     []byte       `db:"payload"`
	Status      OutboxStatus `db:"status"`
	Attempts    int          `db:"attempts"`
	LastError   *string      `db:"last_error"`
	CreatedAt   time.Time    `db:"created_at"`
	ProcessedAt *time.Time   `db:"processed_at"`
}

// NewOutboxEvent builds a pending event with an encoded payload.
func NewOutboxEvent(eventType string, fields map[string]any, now time.Time) (*OutboxEvent, error) {
	payload, err := EncodePayload(fields)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    OutboxStatusPending,
		CreatedAt: now,
	}, nil
}

// OutboxWriter is what domain services need: append an event inside their
// own transaction.
type OutboxWriter interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *OutboxEvent) error
}

// OutboxRepository is what the relay needs.
type OutboxRepository interface {
	GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxEvent, error)
	UpdateEventStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status OutboxStatus) error
	RecordFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, status OutboxStatus) error
}

// Message is one publishable unit handed to a broker.
type Message struct {
	ID         string
	RoutingKey string
	Body       []byte
	Timestamp  time.Time
}

// EventPublisher defines the interface for publishing events to a broker
type EventPublisher interface {
	Publish(ctx context.Context, exchange string, msg Message) error
}

// RelayConfig tunes the polling loop.
type RelayConfig struct {
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
	Exchange    string
}

// OutboxRelay polls the outbox and publishes pending events.
// Rows are claimed with FOR UPDATE SKIP LOCKED so several relays may run.
type OutboxRelay struct {
	outboxRepo OutboxRepository
	publisher  EventPublisher
	txManager  database.TransactionManager
	cfg        RelayConfig
	logger     *slog.Logger
}

func NewOutboxRelay(
	outboxRepo OutboxRepository,
	publisher EventPublisher,
	txManager database.TransactionManager,
	cfg RelayConfig,
	logger *slog.Logger,
) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Exchange == "" {
		cfg.Exchange = Exchange
	}
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		txManager:  txManager,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Error processing outbox batch", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessBatch relays up to BatchSize events and returns how many were
// published. A publish failure is recorded on the row and does not block
// the rest of the batch; after MaxAttempts the event is parked as failed.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := r.txManager.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	events, err := r.outboxRepo.GetPendingEvents(ctx, tx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := 0
	for _, event := range events {
		msg := Message{
			ID:         event.ID.String(),
			RoutingKey: event.EventType,
			Body:       event.Payload,
			Timestamp:  event.CreatedAt,
		}

		if pubErr := r.publisher.Publish(ctx, r.cfg.Exchange, msg); pubErr != nil {
			status := OutboxStatusPending
			if event.Attempts+1 >= r.cfg.MaxAttempts {
				status = OutboxStatusFailed
			}
			r.logger.Warn("Failed to publish outbox event",
				"event_id", event.ID, "event_type", event.EventType,
				"attempt", event.Attempts+1, "error", pubErr)
			if err := r.outboxRepo.RecordFailure(ctx, tx, event.ID, pubErr.Error(), status); err != nil {
				return published, fmt.Errorf("failed to record failure for event %s: %w", event.ID, err)
			}
			continue
		}

		if err := r.outboxRepo.UpdateEventStatus(ctx, tx, event.ID, OutboxStatusPublished); err != nil {
			return published, fmt.Errorf("failed to update event status %s: %w", event.ID, err)
		}
		published++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit outbox batch: %w", err)
	}

	r.logger.Info("Relayed outbox events", "published", published, "claimed", len(events))
	return published, nil
}
