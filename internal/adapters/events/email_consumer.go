// Package events consumes broker messages produced by the outbox relay.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/floroz/bidout/internal/domain/notifications"
	pkgevents "github.com/floroz/bidout/pkg/events"
)

const (
	EmailQueue      = "bidout_emails"
	emailBindingKey = "email.*"
)

// EmailHandler delivers one email job.
type EmailHandler interface {
	Handle(ctx context.Context, job *notifications.EmailJob) error
}

// EmailConsumer drains the email queue. A failed delivery is requeued once;
// a second failure drops the message.
type EmailConsumer struct {
	conn     *amqp.Connection
	handler  EmailHandler
	exchange string
	logger   *slog.Logger
}

func NewEmailConsumer(conn *amqp.Connection, handler EmailHandler, logger *slog.Logger) *EmailConsumer {
	return &EmailConsumer{
		conn:     conn,
		handler:  handler,
		exchange: pkgevents.Exchange,
		logger:   logger,
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *EmailConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := c.setupRabbitMQ(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := ch.Consume(
		EmailQueue, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for email jobs", "queue", EmailQueue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *EmailConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	job, err := notifications.ParseEmailJob(d.RoutingKey, d.Body)
	if err != nil {
		c.logger.Error("Failed to decode email job", "routing_key", d.RoutingKey, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	if err := c.handler.Handle(ctx, job); err != nil {
		requeue := !d.Redelivered
		c.logger.Error("Failed to deliver email",
			"kind", job.Kind, "user_id", job.UserID, "requeue", requeue, "error", err)
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("Failed to Ack message", "error", ackErr)
		return
	}
	c.logger.Info("Delivered email", "kind", job.Kind, "user_id", job.UserID)
}

func (c *EmailConsumer) setupRabbitMQ(ch *amqp.Channel) error {
	if err := pkgevents.DeclareExchange(ch, c.exchange); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		EmailQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return err
	}

	return ch.QueueBind(
		q.Name,          // queue name
		emailBindingKey, // routing key
		c.exchange,      // exchange
		false,
		nil,
	)
}
