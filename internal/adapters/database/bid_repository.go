package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/internal/domain/bids"
)

// PostgresBidRepository implements bids.BidRepository.
type PostgresBidRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

func (r *PostgresBidRepository) GetBidForUpdate(ctx context.Context, tx pgx.Tx, userID, listingID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT id, user_id, listing_id, amount, created_at, updated_at
		FROM bids
		WHERE user_id = $1 AND listing_id = $2
		FOR UPDATE
	`
	var b bids.Bid
	err := tx.QueryRow(ctx, query, userID, listingID).
		Scan(&b.ID, &b.UserID, &b.ListingID, &b.Amount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &b, nil
}

func (r *PostgresBidRepository) CreateBid(ctx context.Context, tx pgx.Tx, b *bids.Bid) error {
	query := `
		INSERT INTO bids (id, user_id, listing_id, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, b.ID, b.UserID, b.ListingID, b.Amount, b.CreatedAt, b.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

func (r *PostgresBidRepository) UpdateBidAmount(ctx context.Context, tx pgx.Tx, b *bids.Bid) error {
	return execOne(ctx, tx, `UPDATE bids SET amount = $2, updated_at = $3 WHERE id = $1`, b.ID, b.Amount, b.UpdatedAt)
}

func (r *PostgresBidRepository) GetBidder(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*bids.Bidder, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.avatar_id, COALESCE(f.resource_type, '')
		FROM users u
		LEFT JOIN files f ON f.id = u.avatar_id
		WHERE u.id = $1
	`
	var b bids.Bidder
	err := tx.QueryRow(ctx, query, userID).Scan(&b.ID, &b.FirstName, &b.LastName, &b.AvatarID, &b.AvatarType)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bidder: %w", err)
	}
	return &b, nil
}

func (r *PostgresBidRepository) ListBids(ctx context.Context, listingID uuid.UUID, limit int) ([]*bids.Bid, error) {
	query := `
		SELECT b.id, b.user_id, b.listing_id, b.amount, b.created_at, b.updated_at,
			u.first_name, u.last_name, u.avatar_id, COALESCE(f.resource_type, '')
		FROM bids b
		JOIN users u ON u.id = b.user_id
		LEFT JOIN files f ON f.id = u.avatar_id
		WHERE b.listing_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, listingID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*bids.Bid, error) {
		var b bids.Bid
		err := row.Scan(&b.ID, &b.UserID, &b.ListingID, &b.Amount, &b.CreatedAt, &b.UpdatedAt,
			&b.Bidder.FirstName, &b.Bidder.LastName, &b.Bidder.AvatarID, &b.Bidder.AvatarType)
		b.Bidder.ID = b.UserID
		return &b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan bids: %w", err)
	}
	return result, nil
}
