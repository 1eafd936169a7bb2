package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Fixed keys in the backing store.
const (
	TokenKey    = "authToken"
	SettingsKey = "systemConfig"
)

// Backend is durable key/value storage for client state.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Session holds the authentication token and the client settings object.
// It does not inspect the token: expiry is discovered when the backend
// answers 401.
type Session struct {
	backend Backend
	logger  zerolog.Logger
}

func New(b Backend, logger zerolog.Logger) *Session {
	return &Session{
		backend: b,
		logger:  logger.With().Str("component", "session").Logger(),
	}
}

// Token returns the stored token, or "" when there is none.
func (s *Session) Token(ctx context.Context) (string, error) {
	v, ok, err := s.backend.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(v), nil
}

func (s *Session) SetToken(ctx context.Context, token string) error {
	if err := s.backend.Put(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.logger.Debug().Msg("token stored")
	return nil
}

func (s *Session) ClearToken(ctx context.Context) error {
	if err := s.backend.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	s.logger.Debug().Msg("token cleared")
	return nil
}
