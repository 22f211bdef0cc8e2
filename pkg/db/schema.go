package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitored_urls (
	user_id  TEXT        NOT NULL,
	url      TEXT        NOT NULL,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, url)
);
CREATE INDEX IF NOT EXISTS monitored_urls_added_at_idx ON monitored_urls (user_id, added_at);
`

// EnsureSchema creates the registry table when it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
