package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/internal/domain/listings"
)

type PostgresFileRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresFileRepository(pool *pgxpool.Pool) *PostgresFileRepository {
	return &PostgresFileRepository{pool: pool}
}

func (r *PostgresFileRepository) CreateFile(ctx context.Context, tx pgx.Tx, f *listings.File) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO files (id, resource_type, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		f.ID, f.ResourceType, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (r *PostgresFileRepository) UpdateFile(ctx context.Context, tx pgx.Tx, f *listings.File) error {
	return execOne(ctx, tx,
		`UPDATE files SET resource_type = $2, updated_at = $3 WHERE id = $1`,
		f.ID, f.ResourceType, f.UpdatedAt)
}
