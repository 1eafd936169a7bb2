package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// DeviceStore holds commissioned door modules and their last heartbeat.
type DeviceStore interface {
	IsKnown(ctx context.Context, deviceID string) (bool, error)
	// RecordHeartbeat marks a known device online and returns its record.
	RecordHeartbeat(ctx context.Context, req types.HeartbeatRequest, at time.Time) (types.Device, error)
	ListDevices(ctx context.Context) ([]types.Device, error)
	GetDevice(ctx context.Context, id string) (types.Device, error)
	// UpdateConfig merges cfg into the stored config and returns the result.
	UpdateConfig(ctx context.Context, id string, cfg types.DeviceConfig) (types.DeviceConfig, error)
	// MarkOffline flips online devices whose last heartbeat is before cutoff
	// and returns them.
	MarkOffline(ctx context.Context, cutoff time.Time) ([]types.Device, error)
}
