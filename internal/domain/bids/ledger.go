package bids

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/pkg/apperr"
	"github.com/floroz/bidout/pkg/database"
	"github.com/floroz/bidout/pkg/events"
)

var (
	ErrOwnListing     = apperr.New(apperr.Forbidden, "You can't bid your own product!")
	ErrAuctionClosed  = apperr.New(apperr.Gone, "This auction is closed!")
	ErrAuctionExpired = apperr.New(apperr.Gone, "This auction has expired and closed!")

	ErrBelowPrice = apperr.Field("amount", "Bid amount cannot be less than the bidding price!")
	ErrBidTooLow  = apperr.Field("amount", "Bid amount must be more than the highest bid!")
)

// minTimeLeft is the shortest remaining window in which bids are accepted.
const minTimeLeft = time.Second

// Ledger accepts bids and serves bid history.
type Ledger struct {
	txManager database.TransactionManager
	bids      BidRepository
	listings  ListingStore
	outbox    events.OutboxWriter
	logger    *slog.Logger
	now       func() time.Time
}

func NewLedger(
	txManager database.TransactionManager,
	bids BidRepository,
	listingStore ListingStore,
	outbox events.OutboxWriter,
	logger *slog.Logger,
) *Ledger {
	return &Ledger{
		txManager: txManager,
		bids:      bids,
		listings:  listingStore,
		outbox:    outbox,
		logger:    logger,
		now:       time.Now,
	}
}

// validateBid applies the acceptance rules in order; the first failure wins.
func validateBid(listing *listings.Listing, bidderID uuid.UUID, amount int64, now time.Time) error {
	switch {
	case bidderID == listing.AuctioneerID:
		return ErrOwnListing
	case !listing.Active:
		return ErrAuctionClosed
	case listing.ClosingDate.Sub(now) < minTimeLeft:
		return ErrAuctionExpired
	case amount < listing.Price:
		return ErrBelowPrice
	case amount <= listing.HighestBid:
		return ErrBidTooLow
	}
	return nil
}

// PlaceBid validates and records a bid. The listing row stays locked from
// the read through the commit, so concurrent bids on one listing are
// validated against each other's results. The bid, the listing aggregates
// and the bid.placed outbox event are written in the same transaction.
func (l *Ledger) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	tx, err := l.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	listing, err := l.listings.GetListingBySlugForUpdate(ctx, tx, cmd.ListingSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if listing == nil {
		return nil, listings.ErrListingNotFound
	}

	now := l.now().UTC()
	if err := validateBid(listing, cmd.BidderID, cmd.Amount, now); err != nil {
		return nil, err
	}

	bid, err := l.bids.GetBidForUpdate(ctx, tx, cmd.BidderID, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing bid: %w", err)
	}

	bidsCount := listing.BidsCount
	if bid != nil {
		bid.Amount = cmd.Amount
		bid.UpdatedAt = now
		if err := l.bids.UpdateBidAmount(ctx, tx, bid); err != nil {
			return nil, fmt.Errorf("failed to update bid: %w", err)
		}
	} else {
		bid = &Bid{
			ID:        uuid.New(),
			UserID:    cmd.BidderID,
			ListingID: listing.ID,
			Amount:    cmd.Amount,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := l.bids.CreateBid(ctx, tx, bid); err != nil {
			return nil, fmt.Errorf("failed to save bid: %w", err)
		}
		bidsCount++
	}

	if err := l.listings.UpdateBidAggregates(ctx, tx, listing.ID, cmd.Amount, bidsCount); err != nil {
		return nil, fmt.Errorf("failed to update highest bid: %w", err)
	}

	event, err := events.NewOutboxEvent(EventTypeBidPlaced, map[string]any{
		"bid_id":     bid.ID.String(),
		"listing_id": listing.ID.String(),
		"user_id":    bid.UserID.String(),
		"amount":     bid.Amount,
		"placed_at":  now.Format(time.RFC3339Nano),
	}, now)
	if err != nil {
		return nil, err
	}
	if err := l.outbox.SaveEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	bidder, err := l.bids.GetBidder(ctx, tx, cmd.BidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bidder: %w", err)
	}
	if bidder != nil {
		bid.Bidder = *bidder
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	l.logger.Info("Bid placed", "listing_id", listing.ID, "bid_id", bid.ID, "amount", bid.Amount, "bids_count", bidsCount)
	return bid, nil
}

// TopBids returns a listing's bids newest first; limit <= 0 returns all.
func (l *Ledger) TopBids(ctx context.Context, listingSlug string, limit int) ([]*Bid, error) {
	listing, err := l.getListing(ctx, listingSlug)
	if err != nil {
		return nil, err
	}
	return l.listBids(ctx, listing.ID, limit)
}

// BidHistory returns every bid on a listing to its auctioneer.
func (l *Ledger) BidHistory(ctx context.Context, listingSlug string, requesterID uuid.UUID) (*listings.Listing, []*Bid, error) {
	listing, err := l.getListing(ctx, listingSlug)
	if err != nil {
		return nil, nil, err
	}
	if listing.AuctioneerID != requesterID {
		return nil, nil, listings.ErrNotOwner
	}
	result, err := l.listBids(ctx, listing.ID, 0)
	if err != nil {
		return nil, nil, err
	}
	return listing, result, nil
}

func (l *Ledger) getListing(ctx context.Context, listingSlug string) (*listings.Listing, error) {
	listing, err := l.listings.GetListingBySlug(ctx, listingSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if listing == nil {
		return nil, listings.ErrListingNotFound
	}
	return listing, nil
}

func (l *Ledger) listBids(ctx context.Context, listingID uuid.UUID, limit int) ([]*Bid, error) {
	result, err := l.bids.ListBids(ctx, listingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return result, nil
}
