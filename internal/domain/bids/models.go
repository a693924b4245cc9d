package bids

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeBidPlaced is the outbox event type written for every accepted bid.
const EventTypeBidPlaced = "bid.placed"

// Bidder is the display info of the user behind a bid.
type Bidder struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	AvatarID   *uuid.UUID
	AvatarType string
}

// Bid is a user's standing offer on a listing. There is at most one per
// (user, listing); re-bidding raises Amount in place.
type Bid struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Bidder    Bidder
	ListingID uuid.UUID
	Amount    int64 // cents
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PlaceBidCommand struct {
	ListingSlug string
	BidderID    uuid.UUID
	Amount      int64
}
