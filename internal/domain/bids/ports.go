package bids

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bidout/internal/domain/listings"
)

// BidRepository persists bids. Lookups return nil, nil when nothing matches.
type BidRepository interface {
	GetBidForUpdate(ctx context.Context, tx pgx.Tx, userID, listingID uuid.UUID) (*Bid, error)
	CreateBid(ctx context.Context, tx pgx.Tx, bid *Bid) error
	UpdateBidAmount(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// GetBidder loads the display info attached to returned bids.
	GetBidder(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*Bidder, error)

	// ListBids returns bids newest first, bidder info joined; limit <= 0
	// means all.
	ListBids(ctx context.Context, listingID uuid.UUID, limit int) ([]*Bid, error)
}

// ListingStore is the slice of listing persistence the ledger needs. Only
// the ledger writes the bid aggregates.
type ListingStore interface {
	GetListingBySlug(ctx context.Context, slug string) (*listings.Listing, error)
	GetListingBySlugForUpdate(ctx context.Context, tx pgx.Tx, slug string) (*listings.Listing, error)
	UpdateBidAggregates(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, highestBid int64, bidsCount int) error
}
