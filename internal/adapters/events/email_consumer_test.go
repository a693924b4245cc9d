package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/bidout/internal/domain/notifications"
)

type ackRecorder struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

type handlerFunc func(ctx context.Context, job *notifications.EmailJob) error

func (f handlerFunc) Handle(ctx context.Context, job *notifications.EmailJob) error { return f(ctx, job) }

func newDelivery(t *testing.T, job notifications.EmailJob, redelivered bool) (amqp.Delivery, *ackRecorder) {
	t.Helper()
	event, err := notifications.NewEmailEvent(job, time.Now())
	require.NoError(t, err)
	rec := &ackRecorder{}
	return amqp.Delivery{
		Acknowledger: rec,
		DeliveryTag:  1,
		RoutingKey:   event.EventType,
		Body:         event.Payload,
		Redelivered:  redelivered,
	}, rec
}

func TestEmailConsumer_HandleDelivery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := notifications.EmailJob{Kind: notifications.KindWelcome, UserID: uuid.New(), Email: "ada@example.com"}

	tests := []struct {
		name        string
		handlerErr  error
		redelivered bool
		wantAck     bool
		wantRequeue bool
	}{
		{name: "delivered", wantAck: true},
		{name: "first failure is requeued", handlerErr: errors.New("smtp down"), wantRequeue: true},
		{name: "second failure is dropped", handlerErr: errors.New("smtp down"), redelivered: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *notifications.EmailJob
			c := NewEmailConsumer(nil, handlerFunc(func(_ context.Context, j *notifications.EmailJob) error {
				got = j
				return tt.handlerErr
			}), logger)

			d, rec := newDelivery(t, job, tt.redelivered)
			c.handleDelivery(context.Background(), d)

			require.NotNil(t, got)
			assert.Equal(t, job, *got)
			assert.Equal(t, tt.wantAck, rec.acked)
			assert.Equal(t, !tt.wantAck, rec.nacked)
			assert.Equal(t, tt.wantRequeue, rec.requeue)
		})
	}
}

func TestEmailConsumer_UndecodableMessageIsDropped(t *testing.T) {
	called := false
	c := NewEmailConsumer(nil, handlerFunc(func(context.Context, *notifications.EmailJob) error {
		called = true
		return nil
	}), slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := &ackRecorder{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: rec, RoutingKey: "email.newsletter"})

	assert.False(t, called)
	assert.True(t, rec.nacked)
	assert.False(t, rec.requeue)
}
