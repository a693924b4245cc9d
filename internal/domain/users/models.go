package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID              uuid.UUID
	FirstName       string
	LastName        string
	Email           string
	PasswordHash    string
	IsEmailVerified bool
	TermsAgreement  bool
	AvatarID        *uuid.UUID
	AvatarType      string

	// Digests of the most recently issued token pair. Nil after logout.
	AccessTokenHash  []byte
	RefreshTokenHash []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type RegisterCommand struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	TermsAgreement bool
}

type LoginCommand struct {
	Email    string
	Password string
	// GuestID is the caller's guest identity, if any; its watchlist is
	// merged into the user on success.
	GuestID uuid.UUID
}

type Tokens struct {
	Access  string
	Refresh string
}
