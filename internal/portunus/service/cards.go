package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type CardService struct {
	cards  store.CardStore
	users  store.UserStore
	logger zerolog.Logger
}

func NewCardService(cards store.CardStore, users store.UserStore, logger zerolog.Logger) *CardService {
	return &CardService{
		cards:  cards,
		users:  users,
		logger: logger.With().Str("component", "cards").Logger(),
	}
}

func (s *CardService) List(ctx context.Context) ([]types.Card, error) {
	return s.cards.ListCards(ctx)
}

func (s *CardService) Get(ctx context.Context, id string) (types.Card, error) {
	return s.cards.GetCard(ctx, id)
}

func (s *CardService) Update(ctx context.Context, id string, u types.CardUpdate) (types.Card, error) {
	return s.mutate(ctx, id, func(c *types.Card) error {
		if u.Status != nil {
			switch *u.Status {
			case types.CardActive:
				c.RevokedReason = ""
			case types.CardRevoked:
			default:
				return ErrInvalidInput
			}
			c.Status = *u.Status
		}
		if u.UserID != nil {
			if err := s.checkUser(ctx, *u.UserID); err != nil {
				return err
			}
			c.UserID = *u.UserID
			if c.UserID != "" {
				c.EnrollMode = false
			}
		}
		if u.Policy != nil {
			p := *u.Policy
			c.Policy = &p
		}
		return nil
	})
}

// Assign binds the card to a user, ending enrollment.
func (s *CardService) Assign(ctx context.Context, id string, r types.AssignCardRequest) (types.Card, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return types.Card{}, ErrInvalidInput
	}
	return s.mutate(ctx, id, func(c *types.Card) error {
		if err := s.checkUser(ctx, r.UserID); err != nil {
			return err
		}
		p := r.Policy
		c.UserID = r.UserID
		c.Policy = &p
		c.EnrollMode = false
		c.Status = types.CardActive
		c.RevokedReason = ""
		return nil
	})
}

func (s *CardService) Revoke(ctx context.Context, id, reason string) (types.Card, error) {
	return s.mutate(ctx, id, func(c *types.Card) error {
		c.Status = types.CardRevoked
		c.RevokedReason = strings.TrimSpace(reason)
		return nil
	})
}

func (s *CardService) Delete(ctx context.Context, id string) error {
	return s.cards.DeleteCard(ctx, id)
}

func (s *CardService) checkUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	_, err := s.users.GetUser(ctx, userID)
	return err
}

func (s *CardService) mutate(ctx context.Context, id string, fn func(*types.Card) error) (types.Card, error) {
	c, err := s.cards.GetCard(ctx, id)
	if err != nil {
		return types.Card{}, err
	}
	if err := fn(&c); err != nil {
		return types.Card{}, err
	}
	c.UpdatedAt = types.Now()
	if err := s.cards.PutCard(ctx, c); err != nil {
		return types.Card{}, err
	}
	s.logger.Debug().Str("card_id", c.CardID).Str("status", string(c.Status)).Msg("card updated")
	return c, nil
}
