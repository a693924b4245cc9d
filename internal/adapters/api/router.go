// Package api exposes the REST surface under /api/v8.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const basePath = "/api/v8"

// Deps is everything the router wires into handlers.
type Deps struct {
	Resolver    ClientResolver
	Accounts    AccountService
	Listings    ListingService
	Bids        BidService
	Watchlist   WatchlistService
	Images      ImageStore
	CORSOrigins []string
	// Ping reports backing-store health for /health. Optional.
	Ping   func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter configures all routes.
func NewRouter(d Deps) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(d.Logger))
	router.Use(corsMiddleware(d.CORSOrigins))

	router.GET("/health", health(d.Ping, d.Logger))

	authH := NewAuthHandler(d.Accounts, d.Logger)
	listingsH := NewListingsHandler(d.Listings, d.Bids, d.Watchlist, d.Images, d.Logger)
	auctioneerH := NewAuctioneerHandler(d.Accounts, d.Listings, d.Bids, d.Images, d.Logger)

	client := withClient(d.Resolver, d.Logger)
	user := requireUser(d.Resolver, d.Logger)

	v8 := router.Group(basePath)

	authGroup := v8.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/verify-email", authH.VerifyEmail)
		authGroup.POST("/resend-verification-email", authH.ResendVerificationEmail)
		authGroup.POST("/send-password-reset-otp", authH.SendPasswordResetOTP)
		authGroup.POST("/set-new-password", authH.SetNewPassword)
		authGroup.POST("/login", client, authH.Login)
		authGroup.POST("/refresh", authH.Refresh)
		authGroup.GET("/logout", user, authH.Logout)
	}

	listingsGroup := v8.Group("/listings")
	{
		listingsGroup.GET("", client, listingsH.ListListings)
		listingsGroup.GET("/detail/:slug", client, listingsH.GetListingDetail)
		listingsGroup.GET("/categories", listingsH.ListCategories)
		listingsGroup.GET("/categories/:slug", client, listingsH.ListByCategory)
		listingsGroup.GET("/watchlist", client, listingsH.GetWatchlist)
		listingsGroup.POST("/watchlist", client, listingsH.ToggleWatchlist)
		listingsGroup.GET("/:slug/bids", listingsH.ListBids)
		listingsGroup.POST("/:slug/bids", user, listingsH.PlaceBid)
	}

	auctioneerGroup := v8.Group("/auctioneer", user)
	{
		auctioneerGroup.GET("", auctioneerH.GetProfile)
		auctioneerGroup.GET("/listings", auctioneerH.ListListings)
		auctioneerGroup.POST("/listings", auctioneerH.CreateListing)
		auctioneerGroup.PATCH("/listings/:slug", auctioneerH.UpdateListing)
		auctioneerGroup.GET("/listings/:slug/bids", auctioneerH.ListingBids)
		auctioneerGroup.POST("/categories", auctioneerH.CreateCategory)
	}

	return router
}

func health(ping func(ctx context.Context) error, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				logger.Error("Health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, envelope{Status: statusFailure, Message: "Unhealthy"})
				return
			}
		}
		respond(c, http.StatusOK, "OK", nil)
	}
}
