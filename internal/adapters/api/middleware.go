package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/floroz/bidout/internal/domain/identity"
	"github.com/floroz/bidout/pkg/auth"
)

const clientKey = "client"

// requestLogger logs every request with its outcome and latency.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", auth.AuthorizationHeader, auth.GuestHeader},
		ExposeHeaders:    []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// withClient resolves the caller from the Authorization or guest header.
// A present but invalid bearer token is rejected.
func withClient(resolver ClientResolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := resolver.ResolveClient(c.Request.Context(),
			c.GetHeader(auth.AuthorizationHeader), c.GetHeader(auth.GuestHeader))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Set(clientKey, client)
		c.Next()
	}
}

// requireUser only lets authenticated users through.
func requireUser(resolver ClientResolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := resolver.RequireAuthenticated(c.Request.Context(), c.GetHeader(auth.AuthorizationHeader))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Set(clientKey, client)
		c.Next()
	}
}

// clientFrom returns the client set by withClient or requireUser, or an
// anonymous client.
func clientFrom(c *gin.Context) identity.Client {
	v, ok := c.Get(clientKey)
	if !ok {
		return identity.Client{}
	}
	client, _ := v.(identity.Client)
	return client
}
