package database

import (
	"context"
	"fmt"
)

// Migrate creates the schema when missing. One table does not justify a
// migration tool; revisit if the schema grows.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS extractions (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			selectors TEXT[] NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS extractions_created_at_idx
			ON extractions (created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
