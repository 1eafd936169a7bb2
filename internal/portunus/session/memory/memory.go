package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session"
)

// Backend keeps client state for the lifetime of the process. It is used
// in tests and for throwaway CLI runs.
type Backend struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ session.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{data: make(map[string]string)}
}

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *Backend) Put(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}
