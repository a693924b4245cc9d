package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/bidout/internal/adapters/api"
	"github.com/floroz/bidout/internal/adapters/cache"
	"github.com/floroz/bidout/internal/adapters/database"
	"github.com/floroz/bidout/internal/adapters/files"
	"github.com/floroz/bidout/internal/config"
	"github.com/floroz/bidout/internal/domain/bids"
	"github.com/floroz/bidout/internal/domain/identity"
	"github.com/floroz/bidout/internal/domain/listings"
	"github.com/floroz/bidout/internal/domain/users"
	"github.com/floroz/bidout/internal/domain/watchlist"
	"github.com/floroz/bidout/migrations"
	"github.com/floroz/bidout/pkg/auth"
	pkgdb "github.com/floroz/bidout/pkg/database"
	pkgevents "github.com/floroz/bidout/pkg/events"
	"github.com/floroz/bidout/pkg/slug"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("API stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Postgres
	pool, err := pkgdb.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("Postgres Connected")

	sqlDB := stdlib.OpenDBFromPool(pool)
	if err := migrations.Up(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return err
	}
	_ = sqlDB.Close()
	logger.Info("Migrations applied")

	// 2. RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn, pkgevents.Exchange)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// 3. Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	logger.Info("Redis Connected")

	// 4. Repositories
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	userRepo := database.NewPostgresUserRepository(pool)
	guestRepo := database.NewPostgresGuestRepository(pool)
	listingRepo := database.NewPostgresListingRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)

	signer, err := auth.NewSigner(cfg.SecretKey, cfg.TokenIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return err
	}

	// 5. Services
	watchlistService := watchlist.NewService(txManager, database.NewPostgresWatchlistRepository(pool),
		guestRepo, listingRepo, logger)
	listingService := listings.NewService(txManager, listingRepo, database.NewPostgresCategoryRepository(pool),
		database.NewPostgresFileRepository(pool), watchlistService, slug.NewAllocator(cfg.SlugMaxAttempts))
	ledger := bids.NewLedger(txManager, database.NewPostgresBidRepository(pool), listingRepo, outboxRepo, logger)
	userService := users.NewService(txManager, userRepo, cache.NewRedisOTPStore(rdb), outboxRepo, signer,
		watchlistService, logger)

	router := api.NewRouter(api.Deps{
		Resolver:  identity.NewResolver(signer, userRepo, guestRepo),
		Accounts:  userService,
		Listings:  listingService,
		Bids:      ledger,
		Watchlist: watchlistService,
		Images: files.NewCloudinarySigner(files.CloudinaryConfig{
			CloudName:  cfg.Cloudinary.CloudName,
			APISecret:  cfg.Cloudinary.APISecret,
			BaseFolder: cfg.Cloudinary.BaseFolder,
		}),
		CORSOrigins: cfg.CORSAllowedOrigins,
		Ping:        pool.Ping,
		Logger:      logger,
	})

	relay := pkgevents.NewOutboxRelay(outboxRepo, publisher, txManager, pkgevents.RelayConfig{
		BatchSize:   cfg.OutboxBatchSize,
		Interval:    cfg.OutboxInterval,
		MaxAttempts: cfg.OutboxMaxAttempts,
	}, logger)

	// Use h2c for HTTP/2 without TLS
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return relay.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting Bidout API", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
