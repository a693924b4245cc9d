package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/floroz/bidout/internal/adapters/files"
	"github.com/floroz/bidout/internal/domain/bids"
	"github.com/floroz/bidout/internal/domain/identity"
	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/internal/domain/users"
	"github.com/floroz/bidout/internal/domain/watchlist"
)

type MockResolver struct{ mock.Mock }

func (m *MockResolver) ResolveClient(ctx context.Context, authHeader, guestHeader string) (identity.Client, error) {
	args := m.Called(ctx, authHeader, guestHeader)
	return args.Get(0).(identity.Client), args.Error(1)
}

func (m *MockResolver) RequireAuthenticated(ctx context.Context, authHeader string) (identity.Client, error) {
	args := m.Called(ctx, authHeader)
	return args.Get(0).(identity.Client), args.Error(1)
}

type MockAccounts struct{ mock.Mock }

func (m *MockAccounts) Register(ctx context.Context, cmd users.RegisterCommand) (*users.User, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockAccounts) VerifyEmail(ctx context.Context, email, otp string) (bool, error) {
	args := m.Called(ctx, email, otp)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) ResendVerificationEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) SendPasswordResetOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAccounts) SetNewPassword(ctx context.Context, email, otp, password string) error {
	return m.Called(ctx, email, otp, password).Error(0)
}

func (m *MockAccounts) Login(ctx context.Context, cmd users.LoginCommand) (*users.Tokens, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.Tokens), args.Error(1)
}

func (m *MockAccounts) Refresh(ctx context.Context, refreshToken string) (*users.Tokens, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.Tokens), args.Error(1)
}

func (m *MockAccounts) Logout(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAccounts) GetProfile(ctx context.Context, userID uuid.UUID) (*users.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

type MockListings struct{ mock.Mock }

func (m *MockListings) CreateListing(ctx context.Context, cmd listings.CreateListingCommand) (*listings.Listing, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func (m *MockListings) UpdateListing(ctx context.Context, cmd listings.UpdateListingCommand) (*listings.Listing, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func (m *MockListings) GetListingDetail(ctx context.Context, slug string) (*listings.Listing, []*listings.Listing, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*listings.Listing), args.Get(1).([]*listings.Listing), args.Error(2)
}

func (m *MockListings) ListListings(ctx context.Context, quantity int, client identity.Client) ([]*listings.Listing, error) {
	args := m.Called(ctx, quantity, client)
	return args.Get(0).([]*listings.Listing), args.Error(1)
}

func (m *MockListings) ListByCategory(ctx context.Context, categorySlug string, client identity.Client) ([]*listings.Listing, error) {
	args := m.Called(ctx, categorySlug, client)
	return args.Get(0).([]*listings.Listing), args.Error(1)
}

func (m *MockListings) ListAuctioneerListings(ctx context.Context, auctioneerID uuid.UUID, quantity int) ([]*listings.Listing, error) {
	args := m.Called(ctx, auctioneerID, quantity)
	return args.Get(0).([]*listings.Listing), args.Error(1)
}

func (m *MockListings) CountListings(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockListings) ListCategories(ctx context.Context) ([]*listings.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*listings.Category), args.Error(1)
}

func (m *MockListings) CreateCategory(ctx context.Context, name string) (*listings.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Category), args.Error(1)
}

type MockBids struct{ mock.Mock }

func (m *MockBids) PlaceBid(ctx context.Context, cmd bids.PlaceBidCommand) (*bids.Bid, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.Bid), args.Error(1)
}

func (m *MockBids) TopBids(ctx context.Context, listingSlug string, limit int) ([]*bids.Bid, error) {
	args := m.Called(ctx, listingSlug, limit)
	return args.Get(0).([]*bids.Bid), args.Error(1)
}

func (m *MockBids) BidHistory(ctx context.Context, listingSlug string, requesterID uuid.UUID) (*listings.Listing, []*bids.Bid, error) {
	args := m.Called(ctx, listingSlug, requesterID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*listings.Listing), args.Get(1).([]*bids.Bid), args.Error(2)
}

type MockWatchlist struct{ mock.Mock }

func (m *MockWatchlist) Toggle(ctx context.Context, listingSlug string, client identity.Client) (*watchlist.ToggleResult, error) {
	args := m.Called(ctx, listingSlug, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*watchlist.ToggleResult), args.Error(1)
}

func (m *MockWatchlist) ListingsForClient(ctx context.Context, client identity.Client) ([]*listings.Listing, error) {
	args := m.Called(ctx, client)
	return args.Get(0).([]*listings.Listing), args.Error(1)
}

// stubImages derives predictable URLs and signatures.
type stubImages struct{}

func (stubImages) SignUpload(folder string, fileID uuid.UUID) (*files.UploadSignature, error) {
	return &files.UploadSignature{PublicID: folder + "/" + fileID.String(), Signature: "sig", Timestamp: 1}, nil
}

func (stubImages) URL(folder string, fileID *uuid.UUID, contentType string) string {
	if fileID == nil {
		return ""
	}
	return "https://img.test/" + folder + "/" + fileID.String()
}
