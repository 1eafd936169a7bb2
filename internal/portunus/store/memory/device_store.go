package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type DeviceStore struct {
	mu      sync.RWMutex
	devices table[types.Device]
}

// NewDeviceStore commissions the given devices, each bound to doorID.
func NewDeviceStore(knownDevices []string, doorID string) *DeviceStore {
	s := &DeviceStore{devices: newTable[types.Device]()}
	for _, id := range knownDevices {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s.devices.put(id, types.Device{
			DeviceID: id,
			DoorID:   doorID,
			Config:   types.DeviceConfig{RelayOpenMs: 3000, OfflineMode: &types.OfflineMode{}},
		})
	}
	return s
}

func cloneDevice(d types.Device) types.Device {
	if d.Config.OfflineMode != nil {
		m := *d.Config.OfflineMode
		d.Config.OfflineMode = &m
	}
	return d
}

func (s *DeviceStore) IsKnown(_ context.Context, deviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices.get(deviceID)
	return ok, nil
}

func (s *DeviceStore) RecordHeartbeat(_ context.Context, req types.HeartbeatRequest, at time.Time) (types.Device, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices.get(req.DeviceID)
	if !ok {
		return types.Device{}, store.ErrNotFound
	}
	d.Online = true
	d.LastHeartbeatAt = types.NewTimestamp(at)
	if fw := strings.TrimSpace(req.FirmwareVersion); fw != "" {
		d.FirmwareVersion = fw
	}
	if hw := strings.TrimSpace(req.HardwareType); hw != "" {
		d.HardwareType = hw
	}
	s.devices.put(d.DeviceID, d)
	return cloneDevice(d), nil
}

func (s *DeviceStore) ListDevices(_ context.Context) ([]types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.devices.list()
	for i := range out {
		out[i] = cloneDevice(out[i])
	}
	return out, nil
}

func (s *DeviceStore) GetDevice(_ context.Context, id string) (types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices.get(id)
	if !ok {
		return types.Device{}, store.ErrNotFound
	}
	return cloneDevice(d), nil
}

func (s *DeviceStore) UpdateConfig(_ context.Context, id string, cfg types.DeviceConfig) (types.DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices.get(id)
	if !ok {
		return types.DeviceConfig{}, store.ErrNotFound
	}
	d.Config = d.Config.Merge(cfg)
	s.devices.put(id, d)
	return cloneDevice(d).Config, nil
}

func (s *DeviceStore) MarkOffline(_ context.Context, cutoff time.Time) ([]types.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var flipped []types.Device
	for _, id := range s.devices.order {
		d := s.devices.rows[id]
		if d.Online && d.LastHeartbeatAt.Before(cutoff) {
			d.Online = false
			s.devices.rows[id] = d
			flipped = append(flipped, cloneDevice(d))
		}
	}
	return flipped, nil
}
