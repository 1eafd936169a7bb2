package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// table is an insertion-ordered map.
type table[T any] struct {
	order []string
	rows  map[string]T
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) del(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, k := range t.order {
		if k == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// Store keeps accounts, users, cards and doors for the development backend.
type Store struct {
	mu       sync.RWMutex
	accounts table[store.Account]
	users    table[types.User]
	cards    table[types.Card]
	doors    table[types.DoorStatus]
}

func New() *Store {
	return &Store{
		accounts: newTable[store.Account](),
		users:    newTable[types.User](),
		cards:    newTable[types.Card](),
		doors:    newTable[types.DoorStatus](),
	}
}

// ── Accounts ─────────────────────────────────────────────────────────────────

func (s *Store) CreateAccount(_ context.Context, a store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts.rows {
		if strings.EqualFold(existing.Email, a.Email) {
			return store.ErrConflict
		}
	}
	s.accounts.put(a.ID, a)
	return nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts.rows {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return store.Account{}, store.ErrNotFound
}

func (s *Store) AccountByID(_ context.Context, id string) (store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts.get(id)
	if !ok {
		return store.Account{}, store.ErrNotFound
	}
	return a, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *Store) ListUsers(_ context.Context) ([]types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list(), nil
}

func (s *Store) GetUser(_ context.Context, id string) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users.get(id)
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) PutUser(_ context.Context, u types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.put(u.ID, u)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.users.del(id) {
		return store.ErrNotFound
	}
	return nil
}

// ── Cards ────────────────────────────────────────────────────────────────────

func cloneCard(c types.Card) types.Card {
	if c.Policy != nil {
		p := *c.Policy
		c.Policy = &p
	}
	return c
}

func (s *Store) ListCards(_ context.Context) ([]types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cards.list()
	for i := range out {
		out[i] = cloneCard(out[i])
	}
	return out, nil
}

func (s *Store) GetCard(_ context.Context, id string) (types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards.get(id)
	if !ok {
		return types.Card{}, store.ErrNotFound
	}
	return cloneCard(c), nil
}

func (s *Store) CardByUID(_ context.Context, uid string) (types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cards.rows {
		if strings.EqualFold(c.CardUID, uid) {
			return cloneCard(c), nil
		}
	}
	return types.Card{}, store.ErrNotFound
}

func (s *Store) PutCard(_ context.Context, c types.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards.put(c.CardID, cloneCard(c))
	return nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cards.del(id) {
		return store.ErrNotFound
	}
	return nil
}

// ── Doors ────────────────────────────────────────────────────────────────────

func (s *Store) ListDoors(_ context.Context) ([]types.DoorStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doors.list(), nil
}

func (s *Store) GetDoor(_ context.Context, id string) (types.DoorStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doors.get(id)
	if !ok {
		return types.DoorStatus{}, store.ErrNotFound
	}
	return d, nil
}

func (s *Store) PutDoor(_ context.Context, d types.DoorStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doors.put(d.DoorID, d)
	return nil
}
