package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOTPStore struct {
	mock.Mock
}

func (m *MockOTPStore) Save(ctx context.Context, userID uuid.UUID, otp OTP) error {
	return m.Called(ctx, userID, otp).Error(0)
}

func (m *MockOTPStore) Get(ctx context.Context, userID uuid.UUID) (*OTP, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OTP), args.Error(1)
}

func (m *MockOTPStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func newTestMailer(t *testing.T) (*Mailer, *MockOTPStore, *MockSender) {
	t.Helper()
	otps := new(MockOTPStore)
	sender := new(MockSender)
	m, err := NewMailer(otps, sender, MailerConfig{OTPTTL: 15 * time.Minute, FrontendURL: "https://bidout.example"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	return m, otps, sender
}

func TestMailer_Handle(t *testing.T) {
	job := &EmailJob{UserID: uuid.New(), Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}

	t.Run("activation issues an otp and includes it", func(t *testing.T) {
		m, otps, sender := newTestMailer(t)
		j := *job
		j.Kind = KindActivation

		var saved OTP
		otps.On("Save", mock.Anything, j.UserID, mock.AnythingOfType("notifications.OTP")).
			Run(func(args mock.Arguments) { saved = args.Get(2).(OTP) }).
			Return(nil)
		sender.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
			return msg.To == "ada@example.com" && msg.Subject == "Activate your account"
		})).Return(nil).Run(func(args mock.Arguments) {
			msg := args.Get(1).(Message)
			assert.Contains(t, msg.HTML, saved.Code)
			assert.Contains(t, msg.HTML, "Ada Lovelace")
		})

		require.NoError(t, m.Handle(context.Background(), &j))
		assert.Len(t, saved.Code, 6)
		assert.Equal(t, m.now().Add(15*time.Minute), saved.ExpiresAt)
		otps.AssertExpectations(t)
		sender.AssertExpectations(t)
	})

	t.Run("welcome does not touch otps", func(t *testing.T) {
		m, otps, sender := newTestMailer(t)
		j := *job
		j.Kind = KindWelcome
		sender.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
			return msg.Subject == "Account verified"
		})).Return(nil)

		require.NoError(t, m.Handle(context.Background(), &j))
		otps.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("otp save failure aborts send", func(t *testing.T) {
		m, otps, sender := newTestMailer(t)
		j := *job
		j.Kind = KindPasswordReset
		otps.On("Save", mock.Anything, j.UserID, mock.Anything).Return(errors.New("redis down"))

		assert.Error(t, m.Handle(context.Background(), &j))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("send failure is returned", func(t *testing.T) {
		m, _, sender := newTestMailer(t)
		j := *job
		j.Kind = KindPasswordResetSuccess
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp 421"))

		assert.Error(t, m.Handle(context.Background(), &j))
	})
}

func TestEmailEvent_RoundTrip(t *testing.T) {
	job := EmailJob{Kind: KindPasswordReset, UserID: uuid.New(), Email: "ada@example.com", FirstName: "Ada"}

	event, err := NewEmailEvent(job, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "email.password_reset", event.EventType)

	got, err := ParseEmailJob(event.EventType, event.Payload)
	require.NoError(t, err)
	assert.Equal(t, job, *got)
}

func TestEmailEvent_UnknownKind(t *testing.T) {
	_, err := NewEmailEvent(EmailJob{Kind: "newsletter"}, time.Now())
	assert.ErrorIs(t, err, ErrUnknownEmailKind)

	_, err = ParseEmailJob("bid.placed", nil)
	assert.ErrorIs(t, err, ErrUnknownEmailKind)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, `^[1-9][0-9]{5}$`, code)
	}
}

func TestOTP_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&OTP{ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&OTP{ExpiresAt: now}).Expired(now))
}
