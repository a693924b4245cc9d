package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/internal/domain/watchlist"
)

// PostgresWatchlistRepository implements watchlist.Repository. Entries are
// owned either by user_id or by session_key (a guest id), never both.
type PostgresWatchlistRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresWatchlistRepository(pool *pgxpool.Pool) *PostgresWatchlistRepository {
	return &PostgresWatchlistRepository{pool: pool}
}

func ownerColumn(owner watchlist.Owner) string {
	if owner.Guest {
		return "session_key"
	}
	return "user_id"
}

func (r *PostgresWatchlistRepository) DeleteEntry(ctx context.Context, tx pgx.Tx, owner watchlist.Owner, listingID uuid.UUID) (bool, error) {
	query := `DELETE FROM watchlists WHERE ` + ownerColumn(owner) + ` = $1 AND listing_id = $2`
	tag, err := tx.Exec(ctx, query, owner.ID, listingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertEntries relies on the (owner, listing) unique constraints to skip
// entries that already exist.
func (r *PostgresWatchlistRepository) InsertEntries(ctx context.Context, tx pgx.Tx, owner watchlist.Owner, listingIDs []uuid.UUID, createdAt time.Time) error {
	ids := make([]string, len(listingIDs))
	for i, id := range listingIDs {
		ids[i] = id.String()
	}
	query := `
		INSERT INTO watchlists (id, ` + ownerColumn(owner) + `, listing_id, created_at)
		SELECT gen_random_uuid(), $1, listing_id, $3
		FROM unnest($2::uuid[]) AS listing_id
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.Exec(ctx, query, owner.ID, ids, createdAt); err != nil {
		return fmt.Errorf("failed to insert watchlist entries: %w", err)
	}
	return nil
}

func (r *PostgresWatchlistRepository) DeleteOwnerEntries(ctx context.Context, tx pgx.Tx, owner watchlist.Owner) error {
	if _, err := tx.Exec(ctx, `DELETE FROM watchlists WHERE `+ownerColumn(owner)+` = $1`, owner.ID); err != nil {
		return fmt.Errorf("failed to delete watchlist entries: %w", err)
	}
	return nil
}

func (r *PostgresWatchlistRepository) EntryListingIDs(ctx context.Context, tx pgx.Tx, owner watchlist.Owner) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `SELECT listing_id FROM watchlists WHERE `+ownerColumn(owner)+` = $1`, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan watchlist: %w", err)
	}
	return ids, nil
}

// WatchedListingIDs covers ownerID as a user and as a guest.
func (r *PostgresWatchlistRepository) WatchedListingIDs(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT listing_id FROM watchlists WHERE user_id = $1 OR session_key = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan watchlist: %w", err)
	}
	watched := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		watched[id] = true
	}
	return watched, nil
}

func (r *PostgresWatchlistRepository) ListWatchedListings(ctx context.Context, ownerID uuid.UUID) ([]*listings.Listing, error) {
	query := listingSelect + `
		JOIN watchlists w ON w.listing_id = l.id
		WHERE w.user_id = $1 OR w.session_key = $1
		ORDER BY w.created_at DESC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watched listings: %w", err)
	}
	return collectListings(rows)
}
