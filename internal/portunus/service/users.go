package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// UserService manages cardholders. Every mutation publishes the full
// post-change record as user_update.
type UserService struct {
	store  store.UserStore
	pub    Publisher
	logger zerolog.Logger
}

func NewUserService(st store.UserStore, pub Publisher, logger zerolog.Logger) *UserService {
	return &UserService{
		store:  st,
		pub:    publisherOrNop(pub),
		logger: logger.With().Str("component", "users").Logger(),
	}
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (types.User, error) {
	return s.store.GetUser(ctx, id)
}

// Create requires a name. New users are active with role user unless the
// input says otherwise.
func (s *UserService) Create(ctx context.Context, in types.UserInput) (types.User, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return types.User{}, ErrInvalidInput
	}
	now := types.Now()
	u := types.User{
		ID:        uuid.NewString(),
		Role:      types.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyUserInput(&u, in); err != nil {
		return types.User{}, err
	}
	if err := s.store.PutUser(ctx, u); err != nil {
		return types.User{}, err
	}
	s.logger.Info().Str("user_id", u.ID).Msg("user created")
	s.publish(u, false)
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id string, in types.UserInput) (types.User, error) {
	return s.mutate(ctx, id, func(u *types.User) error {
		return applyUserInput(u, in)
	})
}

func (s *UserService) Toggle(ctx context.Context, id string) (types.User, error) {
	return s.mutate(ctx, id, func(u *types.User) error {
		u.IsActive = !u.IsActive
		return nil
	})
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("user deleted")
	s.publish(u, true)
	return nil
}

func (s *UserService) mutate(ctx context.Context, id string, fn func(*types.User) error) (types.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if err := fn(&u); err != nil {
		return types.User{}, err
	}
	u.UpdatedAt = types.Now()
	if err := s.store.PutUser(ctx, u); err != nil {
		return types.User{}, err
	}
	s.publish(u, false)
	return u, nil
}

func (s *UserService) publish(u types.User, deleted bool) {
	s.pub.Publish(types.EventUserUpdate, types.UserUpdate{User: u, Deleted: deleted})
}

func applyUserInput(u *types.User, in types.UserInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return ErrInvalidInput
		}
		u.Name = name
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.Role != nil {
		switch *in.Role {
		case types.RoleUser, types.RoleAdmin:
			u.Role = *in.Role
		default:
			return ErrInvalidInput
		}
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.CardUID != nil {
		u.CardUID = strings.ToUpper(strings.TrimSpace(*in.CardUID))
	}
	return nil
}
