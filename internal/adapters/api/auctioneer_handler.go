package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuctioneerHandler serves the authenticated user's own resources.
type AuctioneerHandler struct {
	accounts AccountService
	listings ListingService
	bids     BidService
	present  presenter
	logger   *slog.Logger
}

func NewAuctioneerHandler(
	accounts AccountService,
	listingService ListingService,
	bidService BidService,
	images ImageStore,
	logger *slog.Logger,
) *AuctioneerHandler {
	return &AuctioneerHandler{
		accounts: accounts,
		listings: listingService,
		bids:     bidService,
		present:  newPresenter(images),
		logger:   logger,
	}
}

// GetProfile handles GET /auctioneer
func (h *AuctioneerHandler) GetProfile(c *gin.Context) {
	user, err := h.accounts.GetProfile(c.Request.Context(), clientFrom(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "User details fetched!", h.present.profile(user))
}

// ListListings handles GET /auctioneer/listings?quantity=n
func (h *AuctioneerHandler) ListListings(c *gin.Context) {
	var q quantityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	result, err := h.listings.ListAuctioneerListings(c.Request.Context(), clientFrom(c).ID, q.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Auctioneer Listings fetched", h.present.listings(result))
}

// CreateListing handles POST /auctioneer/listings
func (h *AuctioneerHandler) CreateListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	cmd, err := req.command(clientFrom(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	listing, err := h.listings.CreateListing(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp, err := h.present.listingWrite(listing, true)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Listing created successfully", resp)
}

// UpdateListing handles PATCH /auctioneer/listings/:slug
func (h *AuctioneerHandler) UpdateListing(c *gin.Context) {
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	cmd, err := req.command(c.Param("slug"), clientFrom(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	listing, err := h.listings.UpdateListing(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp, err := h.present.listingWrite(listing, req.FileType != nil)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Listing updated successfully", resp)
}

// ListingBids handles GET /auctioneer/listings/:slug/bids
func (h *AuctioneerHandler) ListingBids(c *gin.Context) {
	listing, result, err := h.bids.BidHistory(c.Request.Context(), c.Param("slug"), clientFrom(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Listing Bids fetched", bidHistoryResponse{
		Listing: h.present.listing(listing, h.present.now()),
		Bids:    h.present.bids(result),
	})
}

// CreateCategory handles POST /auctioneer/categories
func (h *AuctioneerHandler) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	category, err := h.listings.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Category created successfully", categoryResponse{Name: category.Name, Slug: category.Slug})
}
