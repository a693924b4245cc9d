package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/bidout/internal/adapters/cache"
	"github.com/floroz/bidout/internal/adapters/database"
	"github.com/floroz/bidout/internal/adapters/events"
	"github.com/floroz/bidout/internal/adapters/mail"
	"github.com/floroz/bidout/internal/config"
	"github.com/floroz/bidout/internal/domain/notifications"
	pkgdb "github.com/floroz/bidout/pkg/database"
	pkgevents "github.com/floroz/bidout/pkg/events"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Postgres
	pool, err := pkgdb.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("Postgres Connected")

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

	// 4. Email delivery
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		return err
	}
	mailer, err := notifications.NewMailer(cache.NewRedisOTPStore(rdb), sender, notifications.MailerConfig{
		OTPTTL:      cfg.EmailOTPTTL,
		FrontendURL: cfg.FrontendURL,
	}, logger)
	if err != nil {
		return err
	}

	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	relay := pkgevents.NewOutboxRelay(database.NewPostgresOutboxRepository(pool), publisher, txManager,
		pkgevents.RelayConfig{
			BatchSize:   cfg.OutboxBatchSize,
			Interval:    cfg.OutboxInterval,
			MaxAttempts: cfg.OutboxMaxAttempts,
		}, logger)
	consumer := events.NewEmailConsumer(amqpConn, mailer, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return relay.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting Email Consumer...")
		return consumer.Run(gctx)
	})

	err = g.Wait()
	logger.Info("Worker stopped")
	return err
}
