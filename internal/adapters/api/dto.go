package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/bidout/internal/adapters/files"
	"github.com/floroz/bidout/internal/domain/bids"
	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/internal/domain/users"
	"github.com/floroz/bidout/pkg/apperr"
	"github.com/floroz/bidout/pkg/money"
)

// Requests

type registerRequest struct {
	FirstName      string `json:"first_name" binding:"required,max=50"`
	LastName       string `json:"last_name" binding:"required,max=50"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	TermsAgreement *bool  `json:"terms_agreement" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   int    `json:"otp" binding:"required,gt=0"`
}

type setNewPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	OTP      int    `json:"otp" binding:"required,gt=0"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type createListingRequest struct {
	Name        string      `json:"name" binding:"required,max=70"`
	Desc        string      `json:"desc" binding:"required"`
	Category    string      `json:"category" binding:"required"`
	Price       json.Number `json:"price" binding:"required"`
	ClosingDate string      `json:"closing_date" binding:"required"`
	FileType    string      `json:"file_type" binding:"required"`
}

type updateListingRequest struct {
	Name        *string      `json:"name" binding:"omitempty,max=70"`
	Desc        *string      `json:"desc"`
	Category    *string      `json:"category"`
	Price       *json.Number `json:"price"`
	ClosingDate *string      `json:"closing_date"`
	FileType    *string      `json:"file_type"`
	Active      *bool        `json:"active"`
}

type placeBidRequest struct {
	Amount json.Number `json:"amount" binding:"required"`
}

type toggleWatchlistRequest struct {
	Slug string `json:"slug" binding:"required"`
}

type createCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type quantityQuery struct {
	Quantity int `form:"quantity" binding:"omitempty,gte=0"`
}

type limitQuery struct {
	Limit int `form:"limit" binding:"omitempty,gte=0"`
}

func parseAmount(field string, n json.Number) (int64, error) {
	cents, err := money.Parse(n.String())
	if err != nil {
		return 0, apperr.Field(field, "Must be a positive amount with at most 2 decimal places")
	}
	return cents, nil
}

func parseClosingDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Field("closing_date", "Invalid datetime, use RFC3339 format")
	}
	return t.UTC(), nil
}

func (r createListingRequest) command(auctioneerID uuid.UUID) (listings.CreateListingCommand, error) {
	price, err := parseAmount("price", r.Price)
	if err != nil {
		return listings.CreateListingCommand{}, err
	}
	closing, err := parseClosingDate(r.ClosingDate)
	if err != nil {
		return listings.CreateListingCommand{}, err
	}
	return listings.CreateListingCommand{
		AuctioneerID: auctioneerID,
		Name:         r.Name,
		Description:  r.Desc,
		CategorySlug: r.Category,
		Price:        price,
		ClosingDate:  closing,
		FileType:     r.FileType,
	}, nil
}

func (r updateListingRequest) command(slug string, requesterID uuid.UUID) (listings.UpdateListingCommand, error) {
	cmd := listings.UpdateListingCommand{
		Slug:         slug,
		RequesterID:  requesterID,
		Name:         r.Name,
		Description:  r.Desc,
		CategorySlug: r.Category,
		Active:       r.Active,
		FileType:     r.FileType,
	}
	if r.Price != nil {
		price, err := parseAmount("price", *r.Price)
		if err != nil {
			return cmd, err
		}
		cmd.Price = &price
	}
	if r.ClosingDate != nil {
		closing, err := parseClosingDate(*r.ClosingDate)
		if err != nil {
			return cmd, err
		}
		cmd.ClosingDate = &closing
	}
	return cmd, nil
}

// Responses

type userSummary struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type listingResponse struct {
	Name            string      `json:"name"`
	Auctioneer      userSummary `json:"auctioneer"`
	Slug            string      `json:"slug"`
	Desc            string      `json:"desc"`
	Category        *string     `json:"category"`
	Price           string      `json:"price"`
	ClosingDate     time.Time   `json:"closing_date"`
	TimeLeftSeconds float64     `json:"time_left_seconds"`
	Active          bool        `json:"active"`
	BidsCount       int         `json:"bids_count"`
	HighestBid      string      `json:"highest_bid"`
	Image           string      `json:"image"`
	Watchlist       bool        `json:"watchlist"`
}

type listingWriteResponse struct {
	listingResponse
	FileUploadData *files.UploadSignature `json:"file_upload_data"`
}

type listingDetailResponse struct {
	Listing         listingResponse   `json:"listing"`
	RelatedListings []listingResponse `json:"related_listings"`
}

type categoryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type bidResponse struct {
	User      userSummary `json:"user"`
	Amount    string      `json:"amount"`
	CreatedAt time.Time   `json:"created_at"`
}

type bidHistoryResponse struct {
	Listing listingResponse `json:"listing"`
	Bids    []bidResponse   `json:"bids"`
}

type profileResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

type tokensResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type toggleResponse struct {
	GuestUserID *uuid.UUID `json:"guestuser_id"`
}

// presenter renders domain values at a point in time.
type presenter struct {
	images ImageStore
	now    func() time.Time
}

func (p presenter) listing(l *listings.Listing, now time.Time) listingResponse {
	var category *string
	if l.CategoryName != "" {
		name := l.CategoryName
		category = &name
	}
	return listingResponse{
		Name: l.Name,
		Auctioneer: userSummary{
			Name:   fullName(l.Auctioneer.FirstName, l.Auctioneer.LastName),
			Avatar: p.images.URL(files.FolderAvatars, l.Auctioneer.AvatarID, l.Auctioneer.AvatarType),
		},
		Slug:            l.Slug,
		Desc:            l.Description,
		Category:        category,
		Price:           money.Format(l.Price),
		ClosingDate:     l.ClosingDate.UTC(),
		TimeLeftSeconds: l.DisplayTimeLeft(now),
		Active:          l.IsActive(now),
		BidsCount:       l.BidsCount,
		HighestBid:      money.Format(l.HighestBid),
		Image:           p.images.URL(files.FolderListings, l.ImageID, l.ImageType),
		Watchlist:       l.Watchlist,
	}
}

func (p presenter) listings(ls []*listings.Listing) []listingResponse {
	now := p.now()
	out := make([]listingResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, p.listing(l, now))
	}
	return out
}

// listingWrite adds upload credentials when the image placeholder was
// created or replaced by the request.
func (p presenter) listingWrite(l *listings.Listing, imageChanged bool) (listingWriteResponse, error) {
	resp := listingWriteResponse{listingResponse: p.listing(l, p.now())}
	if imageChanged && l.ImageID != nil {
		sig, err := p.images.SignUpload(files.FolderListings, *l.ImageID)
		if err != nil {
			return resp, err
		}
		resp.FileUploadData = sig
	}
	return resp, nil
}

func (p presenter) bids(bs []*bids.Bid) []bidResponse {
	out := make([]bidResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, p.bid(b))
	}
	return out
}

func (p presenter) bid(b *bids.Bid) bidResponse {
	return bidResponse{
		User: userSummary{
			Name:   fullName(b.Bidder.FirstName, b.Bidder.LastName),
			Avatar: p.images.URL(files.FolderAvatars, b.Bidder.AvatarID, b.Bidder.AvatarType),
		},
		Amount:    money.Format(b.Amount),
		CreatedAt: b.CreatedAt.UTC(),
	}
}

func (p presenter) profile(u *users.User) profileResponse {
	return profileResponse{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    p.images.URL(files.FolderAvatars, u.AvatarID, u.AvatarType),
	}
}

func categories(cs []*listings.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryResponse{Name: c.Name, Slug: c.Slug})
	}
	return out
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

func newPresenter(images ImageStore) presenter {
	return presenter{images: images, now: time.Now}
}
