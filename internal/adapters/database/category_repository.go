package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/bidout/internal/domain/listings"
)

type PostgresCategoryRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCategoryRepository(pool *pgxpool.Pool) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{pool: pool}
}

func (r *PostgresCategoryRepository) CreateCategory(ctx context.Context, c *listings.Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Slug, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *PostgresCategoryRepository) GetCategoryBySlug(ctx context.Context, slug string) (*listings.Category, error) {
	var c listings.Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE slug = $1`, slug).
		Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *PostgresCategoryRepository) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`, slug)
}

func (r *PostgresCategoryRepository) CategoryNameExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE LOWER(name) = LOWER($1))`, name)
}

func (r *PostgresCategoryRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return exists, nil
}

func (r *PostgresCategoryRepository) ListCategories(ctx context.Context) ([]*listings.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*listings.Category, error) {
		var c listings.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return result, nil
}
