package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/floroz/bidout/pkg/apperr"
	"github.com/floroz/bidout/pkg/auth"
)

var (
	ErrUnauthorized = apperr.New(apperr.Unauthorized, "Unauthorized User!")
	ErrInvalidToken = apperr.New(apperr.Unauthorized, "Auth Token is Invalid or Expired!")
)

// Client is whoever is making a request: an authenticated user, a known
// guest, or nobody yet (ID == uuid.Nil).
type Client struct {
	ID            uuid.UUID
	Authenticated bool
}

// Anonymous reports whether the client has no persisted identity.
func (c Client) Anonymous() bool {
	return c.ID == uuid.Nil
}

// TokenVerifier validates an access token and returns its user id.
type TokenVerifier interface {
	ValidateAccessToken(token string) (uuid.UUID, error)
}

// SessionStore exposes the digest of the access token most recently issued
// to a user. found is false when the user does not exist.
type SessionStore interface {
	GetAccessTokenHash(ctx context.Context, userID uuid.UUID) (hash []byte, found bool, err error)
}

// GuestRepository looks up guests that have not been merged into a user.
type GuestRepository interface {
	GetActiveGuest(ctx context.Context, id uuid.UUID) (bool, error)
}

type Resolver struct {
	tokens   TokenVerifier
	sessions SessionStore
	guests   GuestRepository
}

func NewResolver(tokens TokenVerifier, sessions SessionStore, guests GuestRepository) *Resolver {
	return &Resolver{tokens: tokens, sessions: sessions, guests: guests}
}

// ResolveClient turns request credentials into a Client. A bearer token
// wins over the guest header and must be valid. An unknown, malformed or
// retired guest id resolves to an anonymous client.
func (r *Resolver) ResolveClient(ctx context.Context, authHeader, guestHeader string) (Client, error) {
	if authHeader != "" {
		return r.RequireAuthenticated(ctx, authHeader)
	}

	if guestHeader == "" {
		return Client{}, nil
	}

	guestID, err := uuid.Parse(guestHeader)
	if err != nil {
		return Client{}, nil
	}

	active, err := r.guests.GetActiveGuest(ctx, guestID)
	if err != nil {
		return Client{}, fmt.Errorf("failed to look up guest: %w", err)
	}
	if !active {
		return Client{}, nil
	}
	return Client{ID: guestID}, nil
}

// RequireAuthenticated resolves a bearer token to a user. It never falls
// back to a guest identity.
func (r *Resolver) RequireAuthenticated(ctx context.Context, authHeader string) (Client, error) {
	token, ok := auth.BearerToken(authHeader)
	if !ok {
		return Client{}, ErrUnauthorized
	}

	userID, err := r.tokens.ValidateAccessToken(token)
	if err != nil {
		return Client{}, ErrInvalidToken
	}

	stored, found, err := r.sessions.GetAccessTokenHash(ctx, userID)
	if err != nil {
		return Client{}, fmt.Errorf("failed to load session: %w", err)
	}
	if !found || !auth.TokenMatches(stored, token) {
		return Client{}, ErrInvalidToken
	}

	return Client{ID: userID, Authenticated: true}, nil
}
