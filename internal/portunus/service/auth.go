package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

const defaultTokenTTL = 12 * time.Hour

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// AuthService registers operator accounts and issues HS256 tokens carrying
// uid and role. Logout revokes the presented token until it expires.
type AuthService struct {
	accounts store.AccountStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

func NewAuthService(accounts store.AccountStore, cfg AuthConfig, logger zerolog.Logger) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		accounts: accounts,
		secret:   []byte(cfg.Secret),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With().Str("component", "auth").Logger(),
		revoked:  make(map[string]time.Time),
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (types.Account, error) {
	return s.create(ctx, email, password, displayName, types.RoleUser)
}

// SeedAdmin creates the admin account unless the email is already taken.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	_, err := s.create(ctx, email, password, "Administrator", types.RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}

func (s *AuthService) create(ctx context.Context, email, password, displayName string, role types.Role) (types.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 6 {
		return types.Account{}, ErrInvalidInput
	}
	if strings.TrimSpace(displayName) == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, fmt.Errorf("hash password: %w", err)
	}

	a := store.Account{
		Account: types.Account{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: strings.TrimSpace(displayName),
			Role:        role,
		},
		PasswordHash: hash,
	}
	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Account{}, ErrEmailTaken
		}
		return types.Account{}, err
	}
	s.logger.Info().Str("account_id", a.ID).Str("role", string(role)).Msg("account created")
	return a.Account, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (types.LoginResult, error) {
	a, err := s.accounts.AccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return types.LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.LoginResult{}, err
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) != nil {
		return types.LoginResult{}, ErrInvalidCredentials
	}

	token, err := generateAccessToken(s.secret, a.ID, string(a.Role), uuid.NewString(), s.ttl, s.now())
	if err != nil {
		return types.LoginResult{}, err
	}
	return types.LoginResult{Token: token, User: a.Account}, nil
}

// Verify parses token and returns its claims if it is valid and not revoked.
func (s *AuthService) Verify(token string) (*AccessClaims, error) {
	claims, err := parseAccessToken(token, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[claims.ID]; ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) Logout(token string) error {
	claims, err := s.Verify(token)
	if err != nil {
		return err
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	if claims.ExpiresAt != nil {
		s.revoked[claims.ID] = claims.ExpiresAt.Time
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, claims *AccessClaims) (types.Account, error) {
	a, err := s.accounts.AccountByID(ctx, claims.UserID)
	if err != nil {
		return types.Account{}, err
	}
	return a.Account, nil
}
