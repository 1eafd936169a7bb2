package resource

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
)

// refreshTimeout bounds refetches triggered by realtime events.
const refreshTimeout = 10 * time.Second

// Stream is the part of the realtime channel hooks subscribe through.
type Stream interface {
	Subscribe(s realtime.Subscriber) (unsubscribe func())
}

type Options struct {
	Logger zerolog.Logger
}

// state carries what every hook exposes beside its data: a loading flag,
// the last error message and a change callback.
type state struct {
	mu       sync.RWMutex
	loading  bool
	err      string
	onChange func()
	unsub    func()
	logger   zerolog.Logger
}

func (s *state) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message of the last failed operation, or "".
func (s *state) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// OnChange sets the callback fired after every state change. It runs on
// the goroutine that made the change.
func (s *state) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Close detaches the hook from the realtime channel.
func (s *state) Close() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *state) watch(stream Stream, sub realtime.Subscriber) {
	unsub := stream.Subscribe(sub)
	s.mu.Lock()
	prev := s.unsub
	s.unsub = unsub
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

func (s *state) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// begin marks a fetch in flight; the returned func clears the flag.
func (s *state) begin() func() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()
	return func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}
}

// fail records err. Callers hold no lock.
func (s *state) fail(op string, err error) error {
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
	s.logger.Error().Err(err).Str("op", op).Msg("resource operation failed")
	s.notify()
	return err
}

// clearErrLocked resets the error after a success. Callers hold s.mu.
func (s *state) clearErrLocked() { s.err = "" }

// refresh runs fetch off the reader goroutine so a slow backend never
// stalls the stream.
func (s *state) refresh(fetch func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_ = fetch(ctx)
	}()
}
