package listings

import (
	"time"

	"github.com/google/uuid"
)

// OtherCategory is the category slug that means "no category".
const OtherCategory = "other"

// Auctioneer is the owner summary joined onto a listing.
type Auctioneer struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	AvatarID   *uuid.UUID
	AvatarType string
}

type Listing struct {
	ID           uuid.UUID
	AuctioneerID uuid.UUID
	Auctioneer   Auctioneer
	Name         string
	Slug         string
	Description  string
	CategoryID   *uuid.UUID
	CategoryName string
	CategorySlug string
	Price        int64 // cents
	HighestBid   int64 // cents
	BidsCount    int
	ClosingDate  time.Time
	Active       bool
	ImageID      *uuid.UUID
	ImageType    string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Watchlist is set on reads made on behalf of a client.
	Watchlist bool
}

// TimeLeftSeconds is ClosingDate - now in seconds, negative once closed.
func (l *Listing) TimeLeftSeconds(now time.Time) float64 {
	return l.ClosingDate.Sub(now).Seconds()
}

// IsActive requires both the manual flag and an open time window.
func (l *Listing) IsActive(now time.Time) bool {
	return l.Active && l.TimeLeftSeconds(now) > 0
}

// DisplayTimeLeft is what clients see: zero for force-closed listings.
func (l *Listing) DisplayTimeLeft(now time.Time) float64 {
	if !l.Active {
		return 0
	}
	return l.TimeLeftSeconds(now)
}

type Category struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

// File is an image placeholder. The bytes live with the upload provider;
// only the id and declared content type are stored.
type File struct {
	ID           uuid.UUID
	ResourceType string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllowedImageTypes maps accepted content types to file extensions.
var AllowedImageTypes = map[string]string{
	"image/bmp":  ".bmp",
	"image/gif":  ".gif",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/tiff": ".tiff",
	"image/webp": ".webp",
}

type CreateListingCommand struct {
	AuctioneerID uuid.UUID
	Name         string
	Description  string
	CategorySlug string
	Price        int64
	ClosingDate  time.Time
	FileType     string
}

// UpdateListingCommand carries a partial update; nil fields are untouched.
type UpdateListingCommand struct {
	Slug         string
	RequesterID  uuid.UUID
	Name         *string
	Description  *string
	CategorySlug *string
	Price        *int64
	ClosingDate  *time.Time
	Active       *bool
	FileType     *string
}
