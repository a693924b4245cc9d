package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/bidout/pkg/events"
)

type EmailKind string

const (
	KindActivation           EmailKind = "activation"
	KindWelcome              EmailKind = "welcome"
	KindPasswordReset        EmailKind = "password_reset"
	KindPasswordResetSuccess EmailKind = "password_reset_success"
)

const routingPrefix = "email."

var ErrUnknownEmailKind = errors.New("unknown email kind")

// RoutingKey is the outbox event type and broker routing key for the kind.
func (k EmailKind) RoutingKey() string {
	return routingPrefix + string(k)
}

func (k EmailKind) valid() bool {
	switch k {
	case KindActivation, KindWelcome, KindPasswordReset, KindPasswordResetSuccess:
		return true
	}
	return false
}

// issuesOTP reports whether sending this kind generates a fresh OTP.
func (k EmailKind) issuesOTP() bool {
	return k == KindActivation || k == KindPasswordReset
}

// EmailJob is a queued request to email a user.
type EmailJob struct {
	Kind      EmailKind
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

func (j EmailJob) FullName() string {
	return strings.TrimSpace(j.FirstName + " " + j.LastName)
}

// NewEmailEvent wraps job in an outbox event routed by its kind.
func NewEmailEvent(job EmailJob, now time.Time) (*events.OutboxEvent, error) {
	if !job.Kind.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmailKind, job.Kind)
	}
	return events.NewOutboxEvent(job.Kind.RoutingKey(), map[string]any{
		"user_id":    job.UserID.String(),
		"email":      job.Email,
		"first_name": job.FirstName,
		"last_name":  job.LastName,
	}, now)
}

// ParseEmailJob decodes a delivered email event.
func ParseEmailJob(routingKey string, body []byte) (*EmailJob, error) {
	kind := EmailKind(strings.TrimPrefix(routingKey, routingPrefix))
	if !strings.HasPrefix(routingKey, routingPrefix) || !kind.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmailKind, routingKey)
	}
	payload, err := events.DecodePayload(body)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(events.StringField(payload, "user_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid user_id in email job: %w", err)
	}
	return &EmailJob{
		Kind:      kind,
		UserID:    userID,
		Email:     events.StringField(payload, "email"),
		FirstName: events.StringField(payload, "first_name"),
		LastName:  events.StringField(payload, "last_name"),
	}, nil
}

// OTP is a one-time code. It stays readable after ExpiresAt for a while so
// an expired code can be told apart from a wrong one.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OTPStore keeps at most one OTP per user. Get returns nil, nil when none
// exists.
type OTPStore interface {
	Save(ctx context.Context, userID uuid.UUID, otp OTP) error
	Get(ctx context.Context, userID uuid.UUID) (*OTP, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
