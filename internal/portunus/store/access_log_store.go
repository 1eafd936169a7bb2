package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// AccessCounts is the tally of decisions in a window.
type AccessCounts struct {
	Granted int
	Denied  int
}

// AccessLogStore persists access decisions as an append-only log.
type AccessLogStore interface {
	RecordEntry(ctx context.Context, e types.AccessLogEntry) error
	// ListEntries returns a page of entries, newest first. Page starts at 1.
	ListEntries(ctx context.Context, page, limit int) ([]types.AccessLogEntry, error)
	CountSince(ctx context.Context, since time.Time) (AccessCounts, error)
}
