package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type DeviceRegistry struct {
	store store.DeviceStore
}

func NewDeviceRegistry(st store.DeviceStore) *DeviceRegistry {
	return &DeviceRegistry{store: st}
}

func (r *DeviceRegistry) IsKnown(ctx context.Context, deviceID string) (bool, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return false, nil
	}
	return r.store.IsKnown(ctx, deviceID)
}

// NoteSeen records a heartbeat for a known device and returns its updated
// snapshot.
func (r *DeviceRegistry) NoteSeen(ctx context.Context, req types.HeartbeatRequest) (types.Device, error) {
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	return r.store.RecordHeartbeat(ctx, req, time.Now().UTC())
}

func (r *DeviceRegistry) Get(ctx context.Context, deviceID string) (types.Device, error) {
	return r.store.GetDevice(ctx, strings.TrimSpace(deviceID))
}

func (r *DeviceRegistry) List(ctx context.Context) ([]types.Device, error) {
	return r.store.ListDevices(ctx)
}

func (r *DeviceRegistry) UpdateConfig(ctx context.Context, deviceID string, cfg types.DeviceConfig) (types.DeviceConfig, error) {
	if cfg.RelayOpenMs < 0 {
		return types.DeviceConfig{}, ErrInvalidInput
	}
	return r.store.UpdateConfig(ctx, strings.TrimSpace(deviceID), cfg)
}
