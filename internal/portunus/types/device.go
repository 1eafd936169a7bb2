package types

type OfflineMode struct {
	Enabled bool `json:"enabled"`
}

type DeviceConfig struct {
	RelayOpenMs int          `json:"relay_open_ms,omitempty"`
	OfflineMode *OfflineMode `json:"offline_mode,omitempty"`
}

// Merge overlays the non-zero fields of o onto c.
func (c DeviceConfig) Merge(o DeviceConfig) DeviceConfig {
	if o.RelayOpenMs != 0 {
		c.RelayOpenMs = o.RelayOpenMs
	}
	if o.OfflineMode != nil {
		m := *o.OfflineMode
		c.OfflineMode = &m
	}
	return c
}

// Device is a door controller module. Online and LastHeartbeatAt are owned
// by the server and only change on refetch.
type Device struct {
	DeviceID        string       `json:"device_id"`
	DoorID          string       `json:"door_id"`
	HardwareType    string       `json:"hardware_type"`
	FirmwareVersion string       `json:"firmware_version"`
	Online          bool         `json:"online"`
	LastHeartbeatAt Timestamp    `json:"last_heartbeat_at,omitzero"`
	Config          DeviceConfig `json:"config"`
}
