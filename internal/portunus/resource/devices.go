package resource

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type DevicesAPI interface {
	ListDevices(ctx context.Context) ([]types.Device, error)
	UpdateDeviceConfig(ctx context.Context, id string, cfg types.DeviceConfig) (types.DeviceConfig, error)
}

// Devices is the synchronized device list. Online state comes from the
// server and only changes on refetch.
type Devices struct {
	state
	api     DevicesAPI
	devices []types.Device
}

func NewDevices(api DevicesAPI, opts Options) *Devices {
	d := &Devices{api: api}
	d.logger = opts.Logger.With().Str("component", "devices").Logger()
	return d
}

func (d *Devices) Devices() []types.Device {
	return d.filter(func(types.Device) bool { return true })
}

func (d *Devices) Online() []types.Device {
	return d.filter(func(x types.Device) bool { return x.Online })
}

func (d *Devices) Offline() []types.Device {
	return d.filter(func(x types.Device) bool { return !x.Online })
}

func (d *Devices) Get(id string) (types.Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, x := range d.devices {
		if x.DeviceID == id {
			return copyDevice(x), true
		}
	}
	return types.Device{}, false
}

func (d *Devices) filter(keep func(types.Device) bool) []types.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]types.Device, 0, len(d.devices))
	for _, x := range d.devices {
		if keep(x) {
			out = append(out, copyDevice(x))
		}
	}
	return out
}

func (d *Devices) FetchAll(ctx context.Context) error {
	defer d.begin()()

	devices, err := d.api.ListDevices(ctx)
	if err != nil {
		return d.fail("fetch devices", err)
	}
	d.mu.Lock()
	d.devices = devices
	d.clearErrLocked()
	d.mu.Unlock()
	return nil
}

// UpdateConfig sends a partial config and merges the effective config the
// server returns into the local record.
func (d *Devices) UpdateConfig(ctx context.Context, id string, cfg types.DeviceConfig) (types.DeviceConfig, error) {
	got, err := d.api.UpdateDeviceConfig(ctx, id, cfg)
	if err != nil {
		return types.DeviceConfig{}, d.fail("update device config", err)
	}
	d.mu.Lock()
	for i := range d.devices {
		if d.devices[i].DeviceID == id {
			d.devices[i].Config = d.devices[i].Config.Merge(got)
			break
		}
	}
	d.clearErrLocked()
	d.mu.Unlock()
	d.notify()
	return got, nil
}

func copyDevice(x types.Device) types.Device {
	if x.Config.OfflineMode != nil {
		m := *x.Config.OfflineMode
		x.Config.OfflineMode = &m
	}
	return x
}
