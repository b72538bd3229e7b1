package storage

import (
	"context"
	"time"
)

// MarkRateLimited фиксирует, что аккаунт упёрся в лимит и до какого момента.
func (db *DB) MarkRateLimited(ctx context.Context, username string, wait time.Duration, until time.Time) error {
	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO rate_limits (username, wait_seconds, until) VALUES ($1, $2, $3)`,
		username, int(wait.Seconds()), until,
	)
	return err
}
