package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/floroz/bidout/internal/domain/bids"
)

type ListingsHandler struct {
	listings  ListingService
	bids      BidService
	watchlist WatchlistService
	present   presenter
	logger    *slog.Logger
}

func NewListingsHandler(
	listingService ListingService,
	bidService BidService,
	watchlistService WatchlistService,
	images ImageStore,
	logger *slog.Logger,
) *ListingsHandler {
	return &ListingsHandler{
		listings:  listingService,
		bids:      bidService,
		watchlist: watchlistService,
		present:   newPresenter(images),
		logger:    logger,
	}
}

// ListListings handles GET /listings?quantity=n. The total listing count is
// sent in X-Total-Count.
func (h *ListingsHandler) ListListings(c *gin.Context) {
	var q quantityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	result, err := h.listings.ListListings(c.Request.Context(), q.Quantity, clientFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	total, err := h.listings.CountListings(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))
	respond(c, http.StatusOK, "Listings fetched", h.present.listings(result))
}

// GetListingDetail handles GET /listings/detail/:slug
func (h *ListingsHandler) GetListingDetail(c *gin.Context) {
	listing, related, err := h.listings.GetListingDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Listing details fetched", listingDetailResponse{
		Listing:         h.present.listing(listing, h.present.now()),
		RelatedListings: h.present.listings(related),
	})
}

// ListCategories handles GET /listings/categories
func (h *ListingsHandler) ListCategories(c *gin.Context) {
	result, err := h.listings.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Categories fetched", categories(result))
}

// ListByCategory handles GET /listings/categories/:slug. The slug "other"
// lists uncategorised listings.
func (h *ListingsHandler) ListByCategory(c *gin.Context) {
	result, err := h.listings.ListByCategory(c.Request.Context(), c.Param("slug"), clientFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Category Listings fetched", h.present.listings(result))
}

// GetWatchlist handles GET /listings/watchlist
func (h *ListingsHandler) GetWatchlist(c *gin.Context) {
	result, err := h.watchlist.ListingsForClient(c.Request.Context(), clientFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Watchlist Listings fetched", h.present.listings(result))
}

// ToggleWatchlist handles POST /listings/watchlist. The returned guest id
// must be sent back in the GuestUserId header by anonymous clients.
func (h *ListingsHandler) ToggleWatchlist(c *gin.Context) {
	var req toggleWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	res, err := h.watchlist.Toggle(c.Request.Context(), req.Slug, clientFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	data := toggleResponse{}
	if res.GuestID != uuid.Nil {
		id := res.GuestID
		data.GuestUserID = &id
	}
	if res.Added {
		respond(c, http.StatusCreated, "Listing added to user watchlist", data)
		return
	}
	respond(c, http.StatusOK, "Listing removed from user watchlist", data)
}

// ListBids handles GET /listings/:slug/bids?limit=n
func (h *ListingsHandler) ListBids(c *gin.Context) {
	var q limitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	result, err := h.bids.TopBids(c.Request.Context(), c.Param("slug"), q.Limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Listing Bids fetched", h.present.bids(result))
}

// PlaceBid handles POST /listings/:slug/bids
func (h *ListingsHandler) PlaceBid(c *gin.Context) {
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	bid, err := h.bids.PlaceBid(c.Request.Context(), bids.PlaceBidCommand{
		ListingSlug: c.Param("slug"),
		BidderID:    clientFrom(c).ID,
		Amount:      amount,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Bid added to listing", h.present.bid(bid))
}
