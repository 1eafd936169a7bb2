package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type HeartbeatService struct {
	registry *DeviceRegistry
	doors    *DoorService
	logger   zerolog.Logger
}

func NewHeartbeatService(reg *DeviceRegistry, doors *DoorService, logger zerolog.Logger) *HeartbeatService {
	return &HeartbeatService{
		registry: reg,
		doors:    doors,
		logger:   logger.With().Str("component", "heartbeat").Logger(),
	}
}

// Record marks a known device online and refreshes its door. Unknown
// devices get known=false and nothing is stored.
func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return types.HeartbeatResponse{}, ErrInvalidDeviceID
	}

	known, err := s.registry.IsKnown(ctx, deviceID)
	if err != nil {
		return types.HeartbeatResponse{}, err
	}
	if !known {
		s.logger.Warn().Str("device_id", deviceID).Msg("heartbeat from unknown device")
		return types.HeartbeatResponse{
			OK:         true,
			Known:      false,
			DeviceID:   deviceID,
			ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
		}, nil
	}

	req.DeviceID = deviceID
	dev, err := s.registry.NoteSeen(ctx, req)
	if err != nil {
		return types.HeartbeatResponse{}, err
	}

	if dev.DoorID != "" {
		if _, err := s.doors.update(ctx, dev.DoorID, func(d *types.DoorStatus) {
			d.IsOnline = true
			if req.DoorClosed != nil {
				d.IsOpen = !*req.DoorClosed
			}
		}); err != nil {
			return types.HeartbeatResponse{}, err
		}
	}

	return types.HeartbeatResponse{
		OK:         true,
		Known:      true,
		DeviceID:   deviceID,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}
