package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bidout/internal/domain/notifications"
	"github.com/floroz/bidout/pkg/apperr"
	"github.com/floroz/bidout/pkg/auth"
	"github.com/floroz/bidout/pkg/database"
	"github.com/floroz/bidout/pkg/events"
)

var (
	ErrEmailTaken          = apperr.Field("email", "Email already registered")
	ErrIncorrectEmail      = apperr.New(apperr.NotFound, "Incorrect Email")
	ErrUserNotFound        = apperr.New(apperr.NotFound, "User not found")
	ErrIncorrectOTP        = apperr.New(apperr.BadRequest, "Incorrect Otp")
	ErrExpiredOTP          = apperr.New(apperr.BadRequest, "Expired Otp")
	ErrInvalidCredentials  = apperr.New(apperr.Unauthorized, "Invalid credentials")
	ErrEmailNotVerified    = apperr.New(apperr.Unauthorized, "Verify your email first")
	ErrInvalidRefreshToken = apperr.New(apperr.Unauthorized, "Refresh token is invalid or expired")
)

type Service struct {
	txManager database.TransactionManager
	users     UserRepository
	otps      notifications.OTPStore
	outbox    events.OutboxWriter
	tokens    TokenIssuer
	watchlist WatchlistMerger
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	txManager database.TransactionManager,
	users UserRepository,
	otps notifications.OTPStore,
	outbox events.OutboxWriter,
	tokens TokenIssuer,
	watchlist WatchlistMerger,
	logger *slog.Logger,
) *Service {
	return &Service{
		txManager: txManager,
		users:     users,
		otps:      otps,
		outbox:    outbox,
		tokens:    tokens,
		watchlist: watchlist,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an unverified user and queues the activation email.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*User, error) {
	email := strings.TrimSpace(cmd.Email)
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:             uuid.New(),
		FirstName:      strings.TrimSpace(cmd.FirstName),
		LastName:       strings.TrimSpace(cmd.LastName),
		Email:          email,
		PasswordHash:   hash,
		TermsAgreement: cmd.TermsAgreement,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.users.CreateUser(ctx, tx, user); err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := s.saveEmailJob(ctx, tx, user, notifications.KindActivation); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// VerifyEmail checks the activation OTP and marks the email verified.
// alreadyVerified is true when there was nothing to do.
func (s *Service) VerifyEmail(ctx context.Context, email, otp string) (alreadyVerified bool, err error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if user.IsEmailVerified {
		return true, nil
	}
	if err := s.checkOTP(ctx, user.ID, otp); err != nil {
		return false, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.users.MarkEmailVerified(ctx, tx, user.ID, s.now().UTC()); err != nil {
		return false, fmt.Errorf("failed to verify email: %w", err)
	}
	if err := s.saveEmailJob(ctx, tx, user, notifications.KindWelcome); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.consumeOTP(ctx, user.ID)
	return false, nil
}

// ResendVerificationEmail queues a new activation email unless the email is
// already verified.
func (s *Service) ResendVerificationEmail(ctx context.Context, email string) (alreadyVerified bool, err error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if user.IsEmailVerified {
		return true, nil
	}
	return false, s.enqueueEmail(ctx, user, notifications.KindActivation)
}

func (s *Service) SendPasswordResetOTP(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.enqueueEmail(ctx, user, notifications.KindPasswordReset)
}

// SetNewPassword checks the reset OTP and replaces the password. A valid
// reset code also proves ownership of the email, so it is marked verified.
func (s *Service) SetNewPassword(ctx context.Context, email, otp, password string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkOTP(ctx, user.ID, otp); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := s.now().UTC()
	if !user.IsEmailVerified {
		if err := s.users.MarkEmailVerified(ctx, tx, user.ID, now); err != nil {
			return fmt.Errorf("failed to verify email: %w", err)
		}
	}
	if err := s.users.UpdatePassword(ctx, tx, user.ID, hash, now); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.saveEmailJob(ctx, tx, user, notifications.KindPasswordResetSuccess); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.consumeOTP(ctx, user.ID)
	return nil
}

// Login issues a fresh token pair, invalidating any previous pair, and
// folds the caller's guest watchlist into the user. A failed merge is
// logged and does not fail the login.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*Tokens, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(cmd.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	valid, err := auth.VerifyPassword(user.PasswordHash, cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if cmd.GuestID != uuid.Nil {
		if err := s.watchlist.MergeGuestIntoUser(ctx, cmd.GuestID, user.ID); err != nil {
			s.logger.Warn("Failed to merge guest watchlist", "guest_id", cmd.GuestID, "user_id", user.ID, "error", err)
		}
	}
	return tokens, nil
}

// Refresh rotates the token pair. Only the most recently issued refresh
// token is accepted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	user, err := s.users.GetUserByRefreshTokenHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidRefreshToken
	}
	if err := s.tokens.ValidateRefreshToken(refreshToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}
	return s.issueTokens(ctx, user.ID)
}

// Logout drops the stored token digests so outstanding tokens stop working.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.SetTokenHashes(ctx, userID, nil, nil, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) issueTokens(ctx context.Context, userID uuid.UUID) (*Tokens, error) {
	pair, err := s.tokens.GenerateTokens(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	err = s.users.SetTokenHashes(ctx, userID,
		auth.HashToken(pair.AccessToken), auth.HashToken(pair.RefreshToken), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to save tokens: %w", err)
	}
	return &Tokens{Access: pair.AccessToken, Refresh: pair.RefreshToken}, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrIncorrectEmail
	}
	return user, nil
}

func (s *Service) checkOTP(ctx context.Context, userID uuid.UUID, code string) error {
	otp, err := s.otps.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get otp: %w", err)
	}
	if otp == nil || otp.Code != code {
		return ErrIncorrectOTP
	}
	if otp.Expired(s.now()) {
		return ErrExpiredOTP
	}
	return nil
}

func (s *Service) consumeOTP(ctx context.Context, userID uuid.UUID) {
	if err := s.otps.Delete(ctx, userID); err != nil {
		s.logger.Warn("Failed to delete used otp", "user_id", userID, "error", err)
	}
}

func (s *Service) enqueueEmail(ctx context.Context, user *User, kind notifications.EmailKind) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.saveEmailJob(ctx, tx, user, kind); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) saveEmailJob(ctx context.Context, tx pgx.Tx, user *User, kind notifications.EmailKind) error {
	event, err := notifications.NewEmailEvent(notifications.EmailJob{
		Kind:      kind,
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, s.now().UTC())
	if err != nil {
		return err
	}
	if err := s.outbox.SaveEvent(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to queue %s email: %w", kind, err)
	}
	return nil
}
