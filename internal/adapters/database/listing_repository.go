package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/internal/domain/listings"
)

const listingSelect = `
	SELECT l.id, l.auctioneer_id, u.first_name, u.last_name, u.avatar_id, COALESCE(af.resource_type, ''),
		l.name, l.slug, l.description, l.category_id, COALESCE(c.name, ''), COALESCE(c.slug, ''),
		l.price, l.highest_bid, l.bids_count, l.closing_date, l.active,
		l.image_id, COALESCE(f.resource_type, ''), l.created_at, l.updated_at
	FROM listings l
	JOIN users u ON u.id = l.auctioneer_id
	LEFT JOIN files af ON af.id = u.avatar_id
	LEFT JOIN categories c ON c.id = l.category_id
	LEFT JOIN files f ON f.id = l.image_id`

// PostgresListingRepository implements listings.ListingRepository and the
// listing side of the bid ledger.
type PostgresListingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresListingRepository(pool *pgxpool.Pool) *PostgresListingRepository {
	return &PostgresListingRepository{pool: pool}
}

func scanListing(row scanner) (*listings.Listing, error) {
	var l listings.Listing
	err := row.Scan(
		&l.ID, &l.AuctioneerID, &l.Auctioneer.FirstName, &l.Auctioneer.LastName, &l.Auctioneer.AvatarID, &l.Auctioneer.AvatarType,
		&l.Name, &l.Slug, &l.Description, &l.CategoryID, &l.CategoryName, &l.CategorySlug,
		&l.Price, &l.HighestBid, &l.BidsCount, &l.ClosingDate, &l.Active,
		&l.ImageID, &l.ImageType, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}
	l.Auctioneer.ID = l.AuctioneerID
	return &l, nil
}

func collectListings(rows pgx.Rows) ([]*listings.Listing, error) {
	defer rows.Close()
	result := []*listings.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return result, nil
}

func (r *PostgresListingRepository) queryListings(ctx context.Context, query string, args ...any) ([]*listings.Listing, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	return collectListings(rows)
}

func (r *PostgresListingRepository) CreateListing(ctx context.Context, tx pgx.Tx, l *listings.Listing) error {
	query := `
		INSERT INTO listings (id, auctioneer_id, name, slug, description, category_id, price,
			highest_bid, bids_count, closing_date, active, image_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := tx.Exec(ctx, query,
		l.ID, l.AuctioneerID, l.Name, l.Slug, l.Description, l.CategoryID, l.Price,
		l.HighestBid, l.BidsCount, l.ClosingDate, l.Active, l.ImageID, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (r *PostgresListingRepository) UpdateListing(ctx context.Context, tx pgx.Tx, l *listings.Listing) error {
	query := `
		UPDATE listings
		SET name = $2, slug = $3, description = $4, category_id = $5, price = $6,
			closing_date = $7, active = $8, image_id = $9, updated_at = $10
		WHERE id = $1
	`
	return execOne(ctx, tx, query,
		l.ID, l.Name, l.Slug, l.Description, l.CategoryID, l.Price,
		l.ClosingDate, l.Active, l.ImageID, l.UpdatedAt,
	)
}

// UpdateBidAggregates is the only writer of highest_bid and bids_count.
func (r *PostgresListingRepository) UpdateBidAggregates(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, highestBid int64, bidsCount int) error {
	return execOne(ctx, tx,
		`UPDATE listings SET highest_bid = $2, bids_count = $3 WHERE id = $1`,
		listingID, highestBid, bidsCount)
}

func (r *PostgresListingRepository) GetListingBySlug(ctx context.Context, slug string) (*listings.Listing, error) {
	return scanListing(r.pool.QueryRow(ctx, listingSelect+` WHERE l.slug = $1`, slug))
}

// GetListingBySlugForUpdate locks the listing row only; joined rows stay
// unlocked.
func (r *PostgresListingRepository) GetListingBySlugForUpdate(ctx context.Context, tx pgx.Tx, slug string) (*listings.Listing, error) {
	return scanListing(tx.QueryRow(ctx, listingSelect+` WHERE l.slug = $1 FOR UPDATE OF l`, slug))
}

func (r *PostgresListingRepository) SlugExists(ctx context.Context, tx pgx.Tx, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM listings WHERE slug = $1 AND id <> $2)`, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check listing slug: %w", err)
	}
	return exists, nil
}

func (r *PostgresListingRepository) ListListings(ctx context.Context, limit int) ([]*listings.Listing, error) {
	return r.queryListings(ctx, listingSelect+` ORDER BY l.created_at DESC LIMIT $1`, limitArg(limit))
}

func (r *PostgresListingRepository) ListByCategory(ctx context.Context, categoryID *uuid.UUID) ([]*listings.Listing, error) {
	return r.queryListings(ctx,
		listingSelect+` WHERE l.category_id IS NOT DISTINCT FROM $1 ORDER BY l.created_at DESC`, categoryID)
}

func (r *PostgresListingRepository) ListRelated(ctx context.Context, categoryID *uuid.UUID, excludeSlug string, limit int) ([]*listings.Listing, error) {
	return r.queryListings(ctx,
		listingSelect+` WHERE l.category_id IS NOT DISTINCT FROM $1 AND l.slug <> $2 ORDER BY l.created_at DESC LIMIT $3`,
		categoryID, excludeSlug, limitArg(limit))
}

func (r *PostgresListingRepository) ListByAuctioneer(ctx context.Context, auctioneerID uuid.UUID, limit int) ([]*listings.Listing, error) {
	return r.queryListings(ctx,
		listingSelect+` WHERE l.auctioneer_id = $1 ORDER BY l.created_at DESC LIMIT $2`,
		auctioneerID, limitArg(limit))
}

func (r *PostgresListingRepository) CountListings(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}
