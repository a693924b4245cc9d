// Package database holds the pgx implementations of the domain repository
// ports.
package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

type scanner interface {
	Scan(dest ...any) error
}

// limitArg maps a non-positive limit to SQL NULL, which Postgres treats as
// no limit.
func limitArg(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
