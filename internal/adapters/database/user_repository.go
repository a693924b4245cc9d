package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/internal/domain/users"
)

const userColumns = `
	u.id, u.first_name, u.last_name, u.email, u.password_hash, u.is_email_verified,
	u.terms_agreement, u.avatar_id, COALESCE(af.resource_type, ''),
	u.access_token_hash, u.refresh_token_hash, u.created_at, u.updated_at`

const userFrom = `FROM users u LEFT JOIN files af ON af.id = u.avatar_id`

// PostgresUserRepository implements users.UserRepository and
// identity.SessionStore.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func scanUser(row scanner) (*users.User, error) {
	var u users.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.IsEmailVerified,
		&u.TermsAgreement, &u.AvatarID, &u.AvatarType,
		&u.AccessTokenHash, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, tx pgx.Tx, u *users.User) error {
	query := `
		INSERT INTO users (id, first_name, last_name, email, password_hash, is_email_verified,
			terms_agreement, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.Exec(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.IsEmailVerified,
		u.TermsAgreement, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.id = $1`, id))
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE LOWER(u.email) = LOWER($1)`, email))
}

func (r *PostgresUserRepository) GetUserByRefreshTokenHash(ctx context.Context, hash []byte) (*users.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.refresh_token_hash = $1`, hash))
}

func (r *PostgresUserRepository) MarkEmailVerified(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	return execOne(ctx, tx, `UPDATE users SET is_email_verified = TRUE, updated_at = $2 WHERE id = $1`, id, at)
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, tx pgx.Tx, id uuid.UUID, passwordHash string, at time.Time) error {
	return execOne(ctx, tx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, at)
}

func (r *PostgresUserRepository) SetTokenHashes(ctx context.Context, id uuid.UUID, accessHash, refreshHash []byte, at time.Time) error {
	query := `UPDATE users SET access_token_hash = $2, refresh_token_hash = $3, updated_at = $4 WHERE id = $1`
	return execOne(ctx, r.pool, query, id, accessHash, refreshHash, at)
}

// GetAccessTokenHash returns the digest of the user's current access token.
func (r *PostgresUserRepository) GetAccessTokenHash(ctx context.Context, userID uuid.UUID) ([]byte, bool, error) {
	var hash []byte
	err := r.pool.QueryRow(ctx, `SELECT access_token_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get access token hash: %w", err)
	}
	return hash, true, nil
}
