package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/bidout/internal/domain/bids"
	"github.com/floroz/bidout/internal/domain/identity"
	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/internal/domain/users"
	"github.com/floroz/bidout/internal/domain/watchlist"
)

const bearer = "Bearer good-token"

type testServer struct {
	router    *gin.Engine
	resolver  *MockResolver
	accounts  *MockAccounts
	listings  *MockListings
	bids      *MockBids
	watchlist *MockWatchlist
	ping      error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		resolver:  new(MockResolver),
		accounts:  new(MockAccounts),
		listings:  new(MockListings),
		bids:      new(MockBids),
		watchlist: new(MockWatchlist),
	}
	s.router = NewRouter(Deps{
		Resolver:  s.resolver,
		Accounts:  s.accounts,
		Listings:  s.listings,
		Bids:      s.bids,
		Watchlist: s.watchlist,
		Images:    stubImages{},
		Ping:      func(context.Context) error { return s.ping },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return s
}

// asUser makes bearer requests resolve to userID.
func (s *testServer) asUser(userID uuid.UUID) {
	client := identity.Client{ID: userID, Authenticated: true}
	s.resolver.On("RequireAuthenticated", mock.Anything, bearer).Return(client, nil)
	s.resolver.On("ResolveClient", mock.Anything, bearer, mock.Anything).Return(client, nil)
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (int, response) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func dataMap(t *testing.T, r response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.Data, &m))
	return m
}

func sampleListing(owner uuid.UUID) *listings.Listing {
	imageID := uuid.New()
	return &listings.Listing{
		ID:           uuid.New(),
		AuctioneerID: owner,
		Auctioneer:   listings.Auctioneer{ID: owner, FirstName: "Ada", LastName: "Lovelace"},
		Name:         "Old Camera",
		Slug:         "old-camera",
		Description:  "works",
		CategoryName: "Electronics",
		Price:        100000,
		HighestBid:   150050,
		BidsCount:    2,
		ClosingDate:  time.Now().Add(time.Hour),
		Active:       true,
		ImageID:      &imageID,
		ImageType:    "image/png",
	}
}

func TestRegister(t *testing.T) {
	valid := map[string]any{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
		"password": "password123", "terms_agreement": true,
	}

	t.Run("success", func(t *testing.T) {
		s := newTestServer(t)
		s.accounts.On("Register", mock.Anything, users.RegisterCommand{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			Password: "password123", TermsAgreement: true,
		}).Return(&users.User{Email: "ada@example.com"}, nil)

		code, resp := s.do(t, http.MethodPost, "/api/v8/auth/register", valid, nil)
		assert.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "Registration successful", resp.Message)
		assert.Equal(t, "ada@example.com", dataMap(t, resp)["email"])
	})

	t.Run("validation errors are keyed by json field", func(t *testing.T) {
		s := newTestServer(t)
		code, resp := s.do(t, http.MethodPost, "/api/v8/auth/register", map[string]any{
			"last_name": "Lovelace", "email": "not-an-email", "password": "short", "terms_agreement": true,
		}, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "failure", resp.Status)
		assert.Equal(t, "Invalid Entry", resp.Message)
		assert.Equal(t, map[string]any{
			"first_name": "This field is required",
			"email":      "Enter a valid email",
			"password":   "Must be at least 8 characters",
		}, dataMap(t, resp))
		s.accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("taken email", func(t *testing.T) {
		s := newTestServer(t)
		s.accounts.On("Register", mock.Anything, mock.Anything).Return(nil, users.ErrEmailTaken)

		code, resp := s.do(t, http.MethodPost, "/api/v8/auth/register", valid, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "Email already registered", dataMap(t, resp)["email"])
	})

	t.Run("malformed json", func(t *testing.T) {
		s := newTestServer(t)
		code, resp := s.do(t, http.MethodPost, "/api/v8/auth/register", `{invalid`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Invalid request payload", resp.Message)
	})
}

func TestVerifyEmail(t *testing.T) {
	tests := []struct {
		name     string
		already  bool
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "verified", wantCode: http.StatusOK, wantMsg: "Account verification successful"},
		{name: "already verified", already: true, wantCode: http.StatusOK, wantMsg: "Email already verified"},
		{name: "wrong otp", err: users.ErrIncorrectOTP, wantCode: http.StatusBadRequest, wantMsg: "Incorrect Otp"},
		{name: "unknown email", err: users.ErrIncorrectEmail, wantCode: http.StatusNotFound, wantMsg: "Incorrect Email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.accounts.On("VerifyEmail", mock.Anything, "ada@example.com", "123456").Return(tt.already, tt.err)

			code, resp := s.do(t, http.MethodPost, "/api/v8/auth/verify-email",
				map[string]any{"email": "ada@example.com", "otp": 123456}, nil)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, resp.Message)
		})
	}
}

func TestLogin_PassesGuestIdentity(t *testing.T) {
	s := newTestServer(t)
	guestID := uuid.New()
	s.resolver.On("ResolveClient", mock.Anything, "", guestID.String()).Return(identity.Client{ID: guestID}, nil)
	s.accounts.On("Login", mock.Anything, users.LoginCommand{
		Email: "ada@example.com", Password: "password123", GuestID: guestID,
	}).Return(&users.Tokens{Access: "a", Refresh: "r"}, nil)

	code, resp := s.do(t, http.MethodPost, "/api/v8/auth/login",
		map[string]any{"email": "ada@example.com", "password": "password123"},
		map[string]string{"GuestUserId": guestID.String()})

	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, map[string]any{"access": "a", "refresh": "r"}, dataMap(t, resp))
	s.accounts.AssertExpectations(t)
}

func TestLogout_RequiresToken(t *testing.T) {
	s := newTestServer(t)
	s.resolver.On("RequireAuthenticated", mock.Anything, "").Return(identity.Client{}, identity.ErrUnauthorized)

	code, resp := s.do(t, http.MethodGet, "/api/v8/auth/logout", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized User!", resp.Message)
	s.accounts.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestPlaceBid(t *testing.T) {
	userID := uuid.New()
	path := "/api/v8/listings/old-camera/bids"
	auth := map[string]string{"Authorization": bearer}

	t.Run("amount is converted to cents", func(t *testing.T) {
		s := newTestServer(t)
		s.asUser(userID)
		s.bids.On("PlaceBid", mock.Anything, bids.PlaceBidCommand{
			ListingSlug: "old-camera", BidderID: userID, Amount: 150050,
		}).Return(&bids.Bid{
			Amount:    150050,
			Bidder:    bids.Bidder{FirstName: "Grace", LastName: "Hopper"},
			CreatedAt: time.Now(),
		}, nil)

		code, resp := s.do(t, http.MethodPost, path, `{"amount": 1500.50}`, auth)
		require.Equal(t, http.StatusCreated, code)
		data := dataMap(t, resp)
		assert.Equal(t, "1500.50", data["amount"])
		assert.Equal(t, "Grace Hopper", data["user"].(map[string]any)["name"])
	})

	t.Run("too many decimals", func(t *testing.T) {
		s := newTestServer(t)
		s.asUser(userID)

		code, resp := s.do(t, http.MethodPost, path, `{"amount": 10.001}`, auth)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, dataMap(t, resp), "amount")
		s.bids.AssertNotCalled(t, "PlaceBid", mock.Anything, mock.Anything)
	})

	ledgerErrors := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "own listing", err: bids.ErrOwnListing, wantCode: http.StatusForbidden},
		{name: "expired", err: bids.ErrAuctionExpired, wantCode: http.StatusGone},
		{name: "too low", err: bids.ErrBidTooLow, wantCode: http.StatusUnprocessableEntity},
		{name: "unknown listing", err: listings.ErrListingNotFound, wantCode: http.StatusNotFound},
	}
	for _, tt := range ledgerErrors {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.asUser(userID)
			s.bids.On("PlaceBid", mock.Anything, mock.Anything).Return(nil, tt.err)

			code, _ := s.do(t, http.MethodPost, path, `{"amount": 20}`, auth)
			assert.Equal(t, tt.wantCode, code)
		})
	}

	t.Run("anonymous is rejected", func(t *testing.T) {
		s := newTestServer(t)
		s.resolver.On("RequireAuthenticated", mock.Anything, "").Return(identity.Client{}, identity.ErrUnauthorized)

		code, _ := s.do(t, http.MethodPost, path, `{"amount": 20}`, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}

func TestListBids_Limit(t *testing.T) {
	s := newTestServer(t)
	s.bids.On("TopBids", mock.Anything, "old-camera", 3).Return([]*bids.Bid{}, nil)

	code, resp := s.do(t, http.MethodGet, "/api/v8/listings/old-camera/bids?limit=3", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(resp.Data))
	s.bids.AssertExpectations(t)
}

func TestToggleWatchlist(t *testing.T) {
	t.Run("anonymous add returns the new guest id", func(t *testing.T) {
		s := newTestServer(t)
		guestID := uuid.New()
		s.resolver.On("ResolveClient", mock.Anything, "", "").Return(identity.Client{}, nil)
		s.watchlist.On("Toggle", mock.Anything, "old-camera", identity.Client{}).
			Return(&watchlist.ToggleResult{Added: true, GuestID: guestID}, nil)

		code, resp := s.do(t, http.MethodPost, "/api/v8/listings/watchlist", map[string]any{"slug": "old-camera"}, nil)
		assert.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "Listing added to user watchlist", resp.Message)
		assert.Equal(t, guestID.String(), dataMap(t, resp)["guestuser_id"])
	})

	t.Run("user removal has no guest id", func(t *testing.T) {
		s := newTestServer(t)
		userID := uuid.New()
		s.asUser(userID)
		s.watchlist.On("Toggle", mock.Anything, "old-camera", identity.Client{ID: userID, Authenticated: true}).
			Return(&watchlist.ToggleResult{}, nil)

		code, resp := s.do(t, http.MethodPost, "/api/v8/listings/watchlist",
			map[string]any{"slug": "old-camera"}, map[string]string{"Authorization": bearer})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Listing removed from user watchlist", resp.Message)
		assert.Nil(t, dataMap(t, resp)["guestuser_id"])
	})

	t.Run("invalid token is not downgraded to guest", func(t *testing.T) {
		s := newTestServer(t)
		s.resolver.On("ResolveClient", mock.Anything, "Bearer stale", "").Return(identity.Client{}, identity.ErrInvalidToken)

		code, _ := s.do(t, http.MethodPost, "/api/v8/listings/watchlist",
			map[string]any{"slug": "old-camera"}, map[string]string{"Authorization": "Bearer stale"})
		assert.Equal(t, http.StatusUnauthorized, code)
		s.watchlist.AssertNotCalled(t, "Toggle", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListListings_Rendering(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	l := sampleListing(owner)
	l.Watchlist = true
	uncategorised := sampleListing(owner)
	uncategorised.CategoryName = ""
	uncategorised.Active = false

	s.resolver.On("ResolveClient", mock.Anything, "", "").Return(identity.Client{}, nil)
	s.listings.On("ListListings", mock.Anything, 2, identity.Client{}).Return([]*listings.Listing{l, uncategorised}, nil)
	s.listings.On("CountListings", mock.Anything).Return(7, nil)

	code, resp := s.do(t, http.MethodGet, "/api/v8/listings?quantity=2", nil, nil)
	require.Equal(t, http.StatusOK, code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	require.Len(t, got, 2)

	assert.Equal(t, "1000.00", got[0]["price"])
	assert.Equal(t, "1500.50", got[0]["highest_bid"])
	assert.Equal(t, "Electronics", got[0]["category"])
	assert.Equal(t, true, got[0]["watchlist"])
	assert.Equal(t, true, got[0]["active"])
	assert.Equal(t, "Ada Lovelace", got[0]["auctioneer"].(map[string]any)["name"])
	assert.Equal(t, "https://img.test/listings/"+l.ImageID.String(), got[0]["image"])
	assert.Greater(t, got[0]["time_left_seconds"].(float64), 0.0)

	assert.Nil(t, got[1]["category"])
	assert.Equal(t, false, got[1]["active"])
	assert.Equal(t, 0.0, got[1]["time_left_seconds"])
}

func TestCreateListing(t *testing.T) {
	userID := uuid.New()
	auth := map[string]string{"Authorization": bearer}
	closing := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	body := map[string]any{
		"name": "Old Camera", "desc": "works", "category": "electronics",
		"price": 1000, "closing_date": closing.Format(time.RFC3339), "file_type": "image/png",
	}

	t.Run("returns upload credentials", func(t *testing.T) {
		s := newTestServer(t)
		s.asUser(userID)
		created := sampleListing(userID)
		s.listings.On("CreateListing", mock.Anything, mock.MatchedBy(func(cmd listings.CreateListingCommand) bool {
			return cmd.AuctioneerID == userID && cmd.Name == "Old Camera" && cmd.CategorySlug == "electronics" &&
				cmd.Price == 100000 && cmd.ClosingDate.Equal(closing) && cmd.FileType == "image/png"
		})).Return(created, nil)

		code, resp := s.do(t, http.MethodPost, "/api/v8/auctioneer/listings", body, auth)
		require.Equal(t, http.StatusCreated, code)
		upload := dataMap(t, resp)["file_upload_data"].(map[string]any)
		assert.Equal(t, "listings/"+created.ImageID.String(), upload["public_id"])
		assert.Equal(t, "sig", upload["signature"])
	})

	t.Run("bad closing date", func(t *testing.T) {
		s := newTestServer(t)
		s.asUser(userID)
		bad := map[string]any{}
		for k, v := range body {
			bad[k] = v
		}
		bad["closing_date"] = "tomorrow"

		code, resp := s.do(t, http.MethodPost, "/api/v8/auctioneer/listings", bad, auth)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, dataMap(t, resp), "closing_date")
	})
}

func TestUpdateListing_NotOwner(t *testing.T) {
	s := newTestServer(t)
	userID := uuid.New()
	s.asUser(userID)
	name := "Renamed"
	s.listings.On("UpdateListing", mock.Anything, listings.UpdateListingCommand{
		Slug: "old-camera", RequesterID: userID, Name: &name,
	}).Return(nil, listings.ErrNotOwner)

	code, resp := s.do(t, http.MethodPatch, "/api/v8/auctioneer/listings/old-camera",
		map[string]any{"name": "Renamed"}, map[string]string{"Authorization": bearer})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "This listing doesn't belong to you!", resp.Message)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	s := newTestServer(t)
	s.listings.On("ListCategories", mock.Anything).
		Return([]*listings.Category(nil), errors.New("failed to list categories: connection refused"))

	code, resp := s.do(t, http.MethodGet, "/api/v8/listings/categories", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Server Error", resp.Message)
	assert.NotContains(t, string(resp.Data), "connection refused")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)

	s.ping = errors.New("db down")
	code, resp := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "failure", resp.Status)
}
