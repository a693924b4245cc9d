package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bidout/pkg/auth"
)

// UserRepository lookups return nil, nil when nothing matches. Emails are
// matched case-insensitively.
type UserRepository interface {
	CreateUser(ctx context.Context, tx pgx.Tx, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByRefreshTokenHash(ctx context.Context, hash []byte) (*User, error)
	MarkEmailVerified(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, tx pgx.Tx, id uuid.UUID, passwordHash string, at time.Time) error

	// SetTokenHashes replaces the stored token digests; nil clears them.
	SetTokenHashes(ctx context.Context, id uuid.UUID, accessHash, refreshHash []byte, at time.Time) error
}

type TokenIssuer interface {
	GenerateTokens(userID uuid.UUID) (*auth.TokenPair, error)
	ValidateRefreshToken(token string) error
}

// WatchlistMerger folds a guest's watchlist into a user at login.
type WatchlistMerger interface {
	MergeGuestIntoUser(ctx context.Context, guestID, userID uuid.UUID) error
}
