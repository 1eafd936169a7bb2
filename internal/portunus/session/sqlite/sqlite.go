package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/dashboard/internal/db"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session"
)

// Backend persists client state in the client_state table. Reads go
// straight to the pool; writes go through the single writer.
type Backend struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var _ session.Backend = (*Backend)(nil)

func New(db *sql.DB, writer *dbpkg.Worker) *Backend {
	return &Backend{db: db, writer: writer}
}

func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, nil
	}

	var v string
	err := b.db.QueryRowContext(ctx, `
SELECT state_value FROM client_state WHERE state_key = ?;
`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("Get %s: %w", key, err)
	}
	return v, true, nil
}

func (b *Backend) Put(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	nowMs := time.Now().UTC().UnixMilli()

	return b.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO client_state(state_key, state_value, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(state_key) DO UPDATE SET
  state_value   = excluded.state_value,
  updated_at_ms = excluded.updated_at_ms;
`, key, value, nowMs); err != nil {
			return fmt.Errorf("Put %s: %w", key, err)
		}
		return nil
	})
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	return b.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM client_state WHERE state_key = ?;
`, key); err != nil {
			return fmt.Errorf("Delete %s: %w", key, err)
		}
		return nil
	})
}
