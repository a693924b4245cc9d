package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/pkg/events"
)

// PostgresOutboxRepository implements events.OutboxWriter and
// events.OutboxRepository.
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool}
}

func (r *PostgresOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4::outbox_status, $5)
	`
	_, err := tx.Exec(ctx, query, event.ID, event.EventType, event.Payload, event.Status, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// GetPendingEvents claims pending events oldest first. SKIP LOCKED lets
// several relays run without publishing the same event twice.
func (r *PostgresOutboxRepository) GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*events.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, attempts, last_error, created_at, processed_at
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*events.OutboxEvent, error) {
		var e events.OutboxEvent
		err := row.Scan(&e.ID, &e.EventType, &e.Payload, &e.Status, &e.Attempts, &e.LastError, &e.CreatedAt, &e.ProcessedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return result, nil
}

func (r *PostgresOutboxRepository) UpdateEventStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status events.OutboxStatus) error {
	var processedAt *time.Time
	if status != events.OutboxStatusPending {
		now := time.Now().UTC()
		processedAt = &now
	}
	return execOne(ctx, tx,
		`UPDATE outbox_events SET status = $2::outbox_status, processed_at = $3 WHERE id = $1`,
		id, status, processedAt)
}

func (r *PostgresOutboxRepository) RecordFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, status events.OutboxStatus) error {
	var processedAt *time.Time
	if status == events.OutboxStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}
	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2, status = $3::outbox_status, processed_at = $4
		WHERE id = $1
	`
	return execOne(ctx, tx, query, id, reason, status, processedAt)
}
