package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/floroz/bidout/internal/adapters/files"
	"github.com/floroz/bidout/internal/domain/bids"
	"github.com/floroz/bidout/internal/domain/identity"
	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/internal/domain/users"
	"github.com/floroz/bidout/internal/domain/watchlist"
)

type ClientResolver interface {
	ResolveClient(ctx context.Context, authHeader, guestHeader string) (identity.Client, error)
	RequireAuthenticated(ctx context.Context, authHeader string) (identity.Client, error)
}

type AccountService interface {
	Register(ctx context.Context, cmd users.RegisterCommand) (*users.User, error)
	VerifyEmail(ctx context.Context, email, otp string) (bool, error)
	ResendVerificationEmail(ctx context.Context, email string) (bool, error)
	SendPasswordResetOTP(ctx context.Context, email string) error
	SetNewPassword(ctx context.Context, email, otp, password string) error
	Login(ctx context.Context, cmd users.LoginCommand) (*users.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*users.Tokens, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*users.User, error)
}

type ListingService interface {
	CreateListing(ctx context.Context, cmd listings.CreateListingCommand) (*listings.Listing, error)
	UpdateListing(ctx context.Context, cmd listings.UpdateListingCommand) (*listings.Listing, error)
	GetListingDetail(ctx context.Context, slug string) (*listings.Listing, []*listings.Listing, error)
	ListListings(ctx context.Context, quantity int, client identity.Client) ([]*listings.Listing, error)
	ListByCategory(ctx context.Context, categorySlug string, client identity.Client) ([]*listings.Listing, error)
	ListAuctioneerListings(ctx context.Context, auctioneerID uuid.UUID, quantity int) ([]*listings.Listing, error)
	CountListings(ctx context.Context) (int, error)
	ListCategories(ctx context.Context) ([]*listings.Category, error)
	CreateCategory(ctx context.Context, name string) (*listings.Category, error)
}

type BidService interface {
	PlaceBid(ctx context.Context, cmd bids.PlaceBidCommand) (*bids.Bid, error)
	TopBids(ctx context.Context, listingSlug string, limit int) ([]*bids.Bid, error)
	BidHistory(ctx context.Context, listingSlug string, requesterID uuid.UUID) (*listings.Listing, []*bids.Bid, error)
}

type WatchlistService interface {
	Toggle(ctx context.Context, listingSlug string, client identity.Client) (*watchlist.ToggleResult, error)
	ListingsForClient(ctx context.Context, client identity.Client) ([]*listings.Listing, error)
}

// ImageStore signs uploads and resolves public image URLs.
type ImageStore interface {
	SignUpload(folder string, fileID uuid.UUID) (*files.UploadSignature, error)
	URL(folder string, fileID *uuid.UUID, contentType string) string
}
