package watchlist

import (
	"time"

	"github.com/google/uuid"
)

type GuestStatus string

const (
	GuestStatusActive GuestStatus = "active"
	GuestStatusMerged GuestStatus = "merged"
)

// Guest is an anonymous client's persisted identity. It owns watchlist
// entries until it is merged into a user at login.
type Guest struct {
	ID         uuid.UUID
	Status     GuestStatus
	MergedInto *uuid.UUID
	MergedAt   *time.Time
	CreatedAt  time.Time
}

// Owner is the ownership key of a watchlist entry: a user id or a guest
// session key.
type Owner struct {
	ID    uuid.UUID
	Guest bool
}

type ToggleResult struct {
	Added bool
	// GuestID is the guest identity the caller should keep using; uuid.Nil
	// for authenticated users.
	GuestID uuid.UUID
}
