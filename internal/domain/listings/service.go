package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bidout/internal/domain/identity"
	"github.com/floroz/bidout/pkg/apperr"
	"github.com/floroz/bidout/pkg/database"
	"github.com/floroz/bidout/pkg/slug"
)

var (
	ErrListingNotFound  = apperr.New(apperr.NotFound, "Listing does not exist!")
	ErrCategoryNotFound = apperr.New(apperr.NotFound, "Invalid category")
	ErrNotOwner         = apperr.New(apperr.Forbidden, "This listing doesn't belong to you!")

	ErrInvalidCategory  = apperr.Field("category", "Invalid category")
	ErrInvalidFileType  = apperr.Field("file_type", "Invalid file type")
	ErrInvalidPrice     = apperr.Field("price", "Price must be greater than zero")
	ErrClosingDatePast  = apperr.Field("closing_date", "Closing date must be in the future")
	ErrCategoryNameUsed = apperr.Field("name", "Category name already exists")
)

const relatedListingsLimit = 10

type Service struct {
	txManager  database.TransactionManager
	listings   ListingRepository
	categories CategoryRepository
	files      FileRepository
	watchlist  WatchlistReader
	slugs      *slug.Allocator
	now        func() time.Time
}

func NewService(
	txManager database.TransactionManager,
	listings ListingRepository,
	categories CategoryRepository,
	files FileRepository,
	watchlist WatchlistReader,
	slugs *slug.Allocator,
) *Service {
	return &Service{
		txManager:  txManager,
		listings:   listings,
		categories: categories,
		files:      files,
		watchlist:  watchlist,
		slugs:      slugs,
		now:        time.Now,
	}
}

// CreateListing resolves the category, allocates an image placeholder and a
// unique slug, then persists the listing in one transaction.
func (s *Service) CreateListing(ctx context.Context, cmd CreateListingCommand) (*Listing, error) {
	if cmd.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if !cmd.ClosingDate.After(s.now()) {
		return nil, ErrClosingDatePast
	}
	if _, ok := AllowedImageTypes[cmd.FileType]; !ok {
		return nil, ErrInvalidFileType
	}

	category, err := s.resolveCategory(ctx, cmd.CategorySlug)
	if err != nil {
		return nil, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := s.now().UTC()
	file := &File{ID: uuid.New(), ResourceType: cmd.FileType, CreatedAt: now, UpdatedAt: now}
	if err := s.files.CreateFile(ctx, tx, file); err != nil {
		return nil, fmt.Errorf("failed to create image placeholder: %w", err)
	}

	listing := &Listing{
		ID:           uuid.New(),
		AuctioneerID: cmd.AuctioneerID,
		Name:         strings.TrimSpace(cmd.Name),
		Description:  cmd.Description,
		Price:        cmd.Price,
		ClosingDate:  cmd.ClosingDate.UTC(),
		Active:       true,
		ImageID:      &file.ID,
		ImageType:    file.ResourceType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyCategory(listing, category)

	listing.Slug, err = s.slugs.Allocate(ctx, listing.Name, s.slugExists(tx, uuid.Nil))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate slug: %w", err)
	}

	if err := s.listings.CreateListing(ctx, tx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return listing, nil
}

// UpdateListing applies a partial update on behalf of the listing owner.
// The slug is recomputed only when the name is part of the update. The
// image placeholder is updated in place when one exists.
func (s *Service) UpdateListing(ctx context.Context, cmd UpdateListingCommand) (*Listing, error) {
	if cmd.Price != nil && *cmd.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if cmd.ClosingDate != nil && !cmd.ClosingDate.After(s.now()) {
		return nil, ErrClosingDatePast
	}
	if cmd.FileType != nil {
		if _, ok := AllowedImageTypes[*cmd.FileType]; !ok {
			return nil, ErrInvalidFileType
		}
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	listing, err := s.listings.GetListingBySlugForUpdate(ctx, tx, cmd.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if listing.AuctioneerID != cmd.RequesterID {
		return nil, ErrNotOwner
	}

	if cmd.CategorySlug != nil {
		category, err := s.resolveCategory(ctx, *cmd.CategorySlug)
		if err != nil {
			return nil, err
		}
		applyCategory(listing, category)
	}
	if cmd.Description != nil {
		listing.Description = *cmd.Description
	}
	if cmd.Price != nil {
		listing.Price = *cmd.Price
	}
	if cmd.ClosingDate != nil {
		listing.ClosingDate = cmd.ClosingDate.UTC()
	}
	if cmd.Active != nil {
		listing.Active = *cmd.Active
	}
	if cmd.Name != nil {
		listing.Name = strings.TrimSpace(*cmd.Name)
		listing.Slug, err = s.slugs.Allocate(ctx, listing.Name, s.slugExists(tx, listing.ID))
		if err != nil {
			return nil, fmt.Errorf("failed to allocate slug: %w", err)
		}
	}

	now := s.now().UTC()
	if cmd.FileType != nil {
		if err := s.upsertImage(ctx, tx, listing, *cmd.FileType, now); err != nil {
			return nil, err
		}
	}
	listing.UpdatedAt = now

	if err := s.listings.UpdateListing(ctx, tx, listing); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return listing, nil
}

func (s *Service) upsertImage(ctx context.Context, tx pgx.Tx, listing *Listing, fileType string, now time.Time) error {
	if listing.ImageID != nil {
		file := &File{ID: *listing.ImageID, ResourceType: fileType, UpdatedAt: now}
		if err := s.files.UpdateFile(ctx, tx, file); err != nil {
			return fmt.Errorf("failed to update image placeholder: %w", err)
		}
	} else {
		file := &File{ID: uuid.New(), ResourceType: fileType, CreatedAt: now, UpdatedAt: now}
		if err := s.files.CreateFile(ctx, tx, file); err != nil {
			return fmt.Errorf("failed to create image placeholder: %w", err)
		}
		listing.ImageID = &file.ID
	}
	listing.ImageType = fileType
	return nil
}

// resolveCategory maps a category slug to a category; "other" means none.
func (s *Service) resolveCategory(ctx context.Context, categorySlug string) (*Category, error) {
	if categorySlug == OtherCategory {
		return nil, nil
	}
	category, err := s.categories.GetCategoryBySlug(ctx, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil {
		return nil, ErrInvalidCategory
	}
	return category, nil
}

func applyCategory(listing *Listing, category *Category) {
	if category == nil {
		listing.CategoryID, listing.CategoryName, listing.CategorySlug = nil, "", ""
		return
	}
	id := category.ID
	listing.CategoryID, listing.CategoryName, listing.CategorySlug = &id, category.Name, category.Slug
}

func (s *Service) slugExists(tx pgx.Tx, excludeID uuid.UUID) slug.ExistsFunc {
	return func(ctx context.Context, candidate string) (bool, error) {
		return s.listings.SlugExists(ctx, tx, candidate, excludeID)
	}
}

// GetListing returns a listing by slug.
func (s *Service) GetListing(ctx context.Context, listingSlug string) (*Listing, error) {
	listing, err := s.listings.GetListingBySlug(ctx, listingSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

// GetListingDetail returns a listing and other listings in its category.
func (s *Service) GetListingDetail(ctx context.Context, listingSlug string) (*Listing, []*Listing, error) {
	listing, err := s.GetListing(ctx, listingSlug)
	if err != nil {
		return nil, nil, err
	}
	related, err := s.listings.ListRelated(ctx, listing.CategoryID, listing.Slug, relatedListingsLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get related listings: %w", err)
	}
	return listing, related, nil
}

// ListListings returns the newest listings annotated for client.
func (s *Service) ListListings(ctx context.Context, quantity int, client identity.Client) ([]*Listing, error) {
	result, err := s.listings.ListListings(ctx, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return s.annotate(ctx, result, client)
}

// ListByCategory lists a category's listings; "other" lists uncategorized.
func (s *Service) ListByCategory(ctx context.Context, categorySlug string, client identity.Client) ([]*Listing, error) {
	var categoryID *uuid.UUID
	if categorySlug != OtherCategory {
		category, err := s.categories.GetCategoryBySlug(ctx, categorySlug)
		if err != nil {
			return nil, fmt.Errorf("failed to get category: %w", err)
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
		categoryID = &category.ID
	}

	result, err := s.listings.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings by category: %w", err)
	}
	return s.annotate(ctx, result, client)
}

func (s *Service) ListAuctioneerListings(ctx context.Context, auctioneerID uuid.UUID, quantity int) ([]*Listing, error) {
	result, err := s.listings.ListByAuctioneer(ctx, auctioneerID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctioneer listings: %w", err)
	}
	return result, nil
}

func (s *Service) CountListings(ctx context.Context) (int, error) {
	return s.listings.CountListings(ctx)
}

func (s *Service) annotate(ctx context.Context, result []*Listing, client identity.Client) ([]*Listing, error) {
	if client.Anonymous() || len(result) == 0 {
		return result, nil
	}
	watched, err := s.watchlist.WatchedListingIDs(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	for _, l := range result {
		l.Watchlist = watched[l.ID]
	}
	return result, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.categories.ListCategories(ctx)
}

// CreateCategory stores a category under a unique slug derived from name.
func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	taken, err := s.categories.CategoryNameExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}
	if taken {
		return nil, ErrCategoryNameUsed
	}

	categorySlug, err := s.slugs.Allocate(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
		if candidate == OtherCategory {
			return true, nil
		}
		return s.categories.CategorySlugExists(ctx, candidate)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate slug: %w", err)
	}

	category := &Category{ID: uuid.New(), Name: name, Slug: categorySlug, CreatedAt: s.now().UTC()}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}
