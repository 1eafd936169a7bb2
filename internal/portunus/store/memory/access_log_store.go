package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// AccessLogStore is an in-memory append-only log of access decisions.
type AccessLogStore struct {
	mu      sync.Mutex
	entries []types.AccessLogEntry
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) RecordEntry(_ context.Context, e types.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = types.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *AccessLogStore) ListEntries(_ context.Context, page, limit int) ([]types.AccessLogEntry, error) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	skip := (page - 1) * limit
	out := make([]types.AccessLogEntry, 0, limit)
	for i := n - 1 - skip; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *AccessLogStore) CountSince(_ context.Context, since time.Time) (store.AccessCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c store.AccessCounts
	for _, e := range s.entries {
		if e.Timestamp.Before(since) {
			continue
		}
		if e.Result == types.ResultGranted {
			c.Granted++
		} else {
			c.Denied++
		}
	}
	return c, nil
}

// Entries returns a copy of all recorded entries, oldest first. Test-only
// helper.
func (s *AccessLogStore) Entries() []types.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
