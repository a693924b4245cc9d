package database

import (
	"context"
	"errors"
	"fmt"

	pkgdb "github.com/floroz/bidout/pkg/database"
)

var errNoRowsAffected = errors.New("no rows affected")

// execOne runs a statement that must touch exactly one existing row.
func execOne(ctx context.Context, db pkgdb.DBTX, query string, args ...any) error {
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNoRowsAffected
	}
	return nil
}
