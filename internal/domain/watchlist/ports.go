package watchlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bidout/internal/domain/listings"
)

type GuestRepository interface {
	CreateGuest(ctx context.Context, tx pgx.Tx, guest *Guest) error

	// LockActiveGuest row-locks an active guest; found is false for unknown
	// or already merged guests.
	LockActiveGuest(ctx context.Context, tx pgx.Tx, id uuid.UUID) (found bool, err error)
	MarkGuestMerged(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID, mergedAt time.Time) error
}

type Repository interface {
	// DeleteEntry reports whether an entry existed.
	DeleteEntry(ctx context.Context, tx pgx.Tx, owner Owner, listingID uuid.UUID) (bool, error)

	// InsertEntries skips listings the owner already watches.
	InsertEntries(ctx context.Context, tx pgx.Tx, owner Owner, listingIDs []uuid.UUID, createdAt time.Time) error
	DeleteOwnerEntries(ctx context.Context, tx pgx.Tx, owner Owner) error
	WatchedListingIDs(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]bool, error)
	EntryListingIDs(ctx context.Context, tx pgx.Tx, owner Owner) ([]uuid.UUID, error)

	// ListWatchedListings returns listings watched by ownerID as a user or
	// as a guest, newest entry first.
	ListWatchedListings(ctx context.Context, ownerID uuid.UUID) ([]*listings.Listing, error)
}

type ListingFinder interface {
	GetListingBySlug(ctx context.Context, slug string) (*listings.Listing, error)
}
