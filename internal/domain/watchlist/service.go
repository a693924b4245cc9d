package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/bidout/internal/domain/identity"
	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/pkg/database"
)

type Service struct {
	txManager database.TransactionManager
	entries   Repository
	guests    GuestRepository
	listings  ListingFinder
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	txManager database.TransactionManager,
	entries Repository,
	guests GuestRepository,
	listingFinder ListingFinder,
	logger *slog.Logger,
) *Service {
	return &Service{
		txManager: txManager,
		entries:   entries,
		guests:    guests,
		listings:  listingFinder,
		logger:    logger,
		now:       time.Now,
	}
}

// Toggle adds the listing to the client's watchlist or removes it if it is
// already there. A client without an identity gets a new guest, returned in
// the result.
func (s *Service) Toggle(ctx context.Context, listingSlug string, client identity.Client) (*ToggleResult, error) {
	listing, err := s.listings.GetListingBySlug(ctx, listingSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if listing == nil {
		return nil, listings.ErrListingNotFound
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := s.now().UTC()
	owner := Owner{ID: client.ID, Guest: !client.Authenticated}
	if client.Anonymous() {
		guest := &Guest{ID: uuid.New(), Status: GuestStatusActive, CreatedAt: now}
		if err := s.guests.CreateGuest(ctx, tx, guest); err != nil {
			return nil, fmt.Errorf("failed to create guest: %w", err)
		}
		owner = Owner{ID: guest.ID, Guest: true}
	}

	removed, err := s.entries.DeleteEntry(ctx, tx, owner, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	if !removed {
		if err := s.entries.InsertEntries(ctx, tx, owner, []uuid.UUID{listing.ID}, now); err != nil {
			return nil, fmt.Errorf("failed to add watchlist entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result := &ToggleResult{Added: !removed}
	if owner.Guest {
		result.GuestID = owner.ID
	}
	return result, nil
}

// MergeGuestIntoUser moves a guest's watchlist to userID and retires the
// guest. Listings the user already watches are skipped. Unknown or already
// merged guests are a no-op.
func (s *Service) MergeGuestIntoUser(ctx context.Context, guestID, userID uuid.UUID) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	found, err := s.guests.LockActiveGuest(ctx, tx, guestID)
	if err != nil {
		return fmt.Errorf("failed to lock guest: %w", err)
	}
	if !found {
		return nil
	}

	guest := Owner{ID: guestID, Guest: true}
	user := Owner{ID: userID}

	guestListings, err := s.entries.EntryListingIDs(ctx, tx, guest)
	if err != nil {
		return fmt.Errorf("failed to load guest watchlist: %w", err)
	}
	userListings, err := s.entries.EntryListingIDs(ctx, tx, user)
	if err != nil {
		return fmt.Errorf("failed to load user watchlist: %w", err)
	}

	watched := make(map[uuid.UUID]bool, len(userListings))
	for _, id := range userListings {
		watched[id] = true
	}
	missing := make([]uuid.UUID, 0, len(guestListings))
	for _, id := range guestListings {
		if !watched[id] {
			missing = append(missing, id)
		}
	}

	now := s.now().UTC()
	if len(missing) > 0 {
		if err := s.entries.InsertEntries(ctx, tx, user, missing, now); err != nil {
			return fmt.Errorf("failed to copy watchlist entries: %w", err)
		}
	}
	if err := s.entries.DeleteOwnerEntries(ctx, tx, guest); err != nil {
		return fmt.Errorf("failed to delete guest watchlist: %w", err)
	}
	if err := s.guests.MarkGuestMerged(ctx, tx, guestID, userID, now); err != nil {
		return fmt.Errorf("failed to retire guest: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Merged guest watchlist", "guest_id", guestID, "user_id", userID, "copied", len(missing))
	return nil
}

// ListingsForClient returns the client's watched listings, newest entry
// first. Anonymous clients watch nothing.
func (s *Service) ListingsForClient(ctx context.Context, client identity.Client) ([]*listings.Listing, error) {
	if client.Anonymous() {
		return []*listings.Listing{}, nil
	}
	result, err := s.entries.ListWatchedListings(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	for _, l := range result {
		l.Watchlist = true
	}
	return result, nil
}

// WatchedListingIDs serves listing reads that annotate the watchlist flag.
func (s *Service) WatchedListingIDs(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]bool, error) {
	return s.entries.WatchedListingIDs(ctx, ownerID)
}
