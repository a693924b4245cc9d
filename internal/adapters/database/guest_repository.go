package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/internal/domain/watchlist"
)

// PostgresGuestRepository implements watchlist.GuestRepository and
// identity.GuestRepository.
type PostgresGuestRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresGuestRepository(pool *pgxpool.Pool) *PostgresGuestRepository {
	return &PostgresGuestRepository{pool: pool}
}

func (r *PostgresGuestRepository) CreateGuest(ctx context.Context, tx pgx.Tx, g *watchlist.Guest) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO guests (id, status, created_at) VALUES ($1, $2::guest_status, $3)`,
		g.ID, g.Status, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert guest: %w", err)
	}
	return nil
}

func (r *PostgresGuestRepository) GetActiveGuest(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM guests WHERE id = $1 AND status = 'active')`, id).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to get guest: %w", err)
	}
	return active, nil
}

func (r *PostgresGuestRepository) LockActiveGuest(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	var one int
	err := tx.QueryRow(ctx,
		`SELECT 1 FROM guests WHERE id = $1 AND status = 'active' FOR UPDATE`, id).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock guest: %w", err)
	}
	return true, nil
}

func (r *PostgresGuestRepository) MarkGuestMerged(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID, mergedAt time.Time) error {
	return execOne(ctx, tx,
		`UPDATE guests SET status = 'merged', merged_into = $2, merged_at = $3 WHERE id = $1`,
		id, userID, mergedAt)
}
