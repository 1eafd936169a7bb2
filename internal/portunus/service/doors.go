package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// DoorService owns door status. Every change is published as door_status.
type DoorService struct {
	store  store.DoorStore
	pub    Publisher
	logger zerolog.Logger
}

func NewDoorService(st store.DoorStore, pub Publisher, logger zerolog.Logger) *DoorService {
	return &DoorService{
		store:  st,
		pub:    publisherOrNop(pub),
		logger: logger.With().Str("component", "doors").Logger(),
	}
}

func (s *DoorService) List(ctx context.Context) ([]types.DoorStatus, error) {
	return s.store.ListDoors(ctx)
}

func (s *DoorService) Get(ctx context.Context, doorID string) (types.DoorStatus, error) {
	return s.store.GetDoor(ctx, strings.TrimSpace(doorID))
}

// Command applies an unlock or lock request to the door.
func (s *DoorService) Command(ctx context.Context, doorID string, action types.DoorAction) (types.DoorCommandResult, error) {
	if err := action.Validate(); err != nil {
		return types.DoorCommandResult{}, err
	}
	d, err := s.update(ctx, doorID, func(d *types.DoorStatus) {
		d.IsOpen = action == types.DoorUnlock
	})
	if err != nil {
		return types.DoorCommandResult{}, err
	}
	s.logger.Info().Str("door_id", d.DoorID).Str("action", string(action)).Msg("door command")
	return types.DoorCommandResult{DoorID: d.DoorID, Action: action, RequestedAt: d.LastUpdated}, nil
}

// update loads doorID (creating it when absent), stamps it, applies fn,
// then stores and publishes the result.
func (s *DoorService) update(ctx context.Context, doorID string, fn func(*types.DoorStatus)) (types.DoorStatus, error) {
	doorID = strings.TrimSpace(doorID)
	if doorID == "" {
		return types.DoorStatus{}, ErrInvalidInput
	}
	d, err := s.store.GetDoor(ctx, doorID)
	if errors.Is(err, store.ErrNotFound) {
		d = types.DoorStatus{DoorID: doorID, Name: doorID}
	} else if err != nil {
		return types.DoorStatus{}, err
	}

	d.LastUpdated = types.Now()
	fn(&d)
	if err := s.store.PutDoor(ctx, d); err != nil {
		return types.DoorStatus{}, err
	}
	s.pub.Publish(types.EventDoorStatus, d)
	return d, nil
}
