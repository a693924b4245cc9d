package listings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListingRepository defines listing persistence. Lookups return nil, nil
// when nothing matches.
type ListingRepository interface {
	CreateListing(ctx context.Context, tx pgx.Tx, listing *Listing) error

	// UpdateListing writes the auctioneer-editable columns only; bid
	// aggregates are owned by the bid ledger.
	UpdateListing(ctx context.Context, tx pgx.Tx, listing *Listing) error

	GetListingBySlug(ctx context.Context, slug string) (*Listing, error)
	GetListingBySlugForUpdate(ctx context.Context, tx pgx.Tx, slug string) (*Listing, error)

	// SlugExists ignores the row identified by excludeID (uuid.Nil for none).
	SlugExists(ctx context.Context, tx pgx.Tx, slug string, excludeID uuid.UUID) (bool, error)

	// ListListings returns newest first; limit <= 0 means all.
	ListListings(ctx context.Context, limit int) ([]*Listing, error)
	ListByCategory(ctx context.Context, categoryID *uuid.UUID) ([]*Listing, error)
	ListRelated(ctx context.Context, categoryID *uuid.UUID, excludeSlug string, limit int) ([]*Listing, error)
	ListByAuctioneer(ctx context.Context, auctioneerID uuid.UUID, limit int) ([]*Listing, error)
	CountListings(ctx context.Context) (int, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *Category) error
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	CategoryNameExists(ctx context.Context, name string) (bool, error)
	ListCategories(ctx context.Context) ([]*Category, error)
}

type FileRepository interface {
	CreateFile(ctx context.Context, tx pgx.Tx, file *File) error
	UpdateFile(ctx context.Context, tx pgx.Tx, file *File) error
}

// WatchlistReader reports which listings an owner (user or guest) watches.
type WatchlistReader interface {
	WatchedListingIDs(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]bool, error)
}
