package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/dashboard/internal/db"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type DeviceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDeviceStore(db *sql.DB, writer *dbpkg.Worker) *DeviceStore {
	return &DeviceStore{db: db, writer: writer}
}

const deviceColumns = `device_id, door_id, hardware_type, firmware_version, online,
       last_heartbeat_at_ms, relay_open_ms, offline_mode_enabled`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(r rowScanner) (types.Device, error) {
	var (
		d        types.Device
		online   int
		lastHBMs sql.NullInt64
		relayMs  int
		offline  int
	)
	if err := r.Scan(&d.DeviceID, &d.DoorID, &d.HardwareType, &d.FirmwareVersion, &online,
		&lastHBMs, &relayMs, &offline); err != nil {
		return types.Device{}, err
	}
	d.Online = online == 1
	if lastHBMs.Valid {
		d.LastHeartbeatAt = types.FromMillis(lastHBMs.Int64)
	}
	d.Config = types.DeviceConfig{
		RelayOpenMs: relayMs,
		OfflineMode: &types.OfflineMode{Enabled: offline == 1},
	}
	return d, nil
}

// Commission makes deviceID known and binds it to doorID. Existing rows
// keep their heartbeat state.
func (s *DeviceStore) Commission(ctx context.Context, deviceID, doorID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	ms := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureDevice(ctx, tx, deviceID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE devices
SET enabled = 1,
    door_id = ?,
    commissioned_at_ms = COALESCE(commissioned_at_ms, ?),
    updated_at_ms = ?
WHERE device_id = ?;
`, doorID, ms, ms, deviceID); err != nil {
			return fmt.Errorf("Commission update device: %w", err)
		}
		return nil
	})
}

// IsKnown: treat "known" as "commissioned + enabled".
func (s *DeviceStore) IsKnown(ctx context.Context, deviceID string) (bool, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return false, nil
	}

	var enabled int
	var commissioned sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
SELECT enabled, commissioned_at_ms
FROM devices
WHERE device_id = ?;
`, deviceID).Scan(&enabled, &commissioned)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsKnown query: %w", err)
	}

	return enabled == 1 && commissioned.Valid, nil
}

func (s *DeviceStore) RecordHeartbeat(ctx context.Context, req types.HeartbeatRequest, at time.Time) (types.Device, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if at.IsZero() {
		at = time.Now().UTC()
	}
	ms := at.UTC().UnixMilli()

	var rssi any
	if req.RSSIDbm != nil {
		rssi = *req.RSSIDbm
	}
	var ip any
	if v := strings.TrimSpace(req.IP); v != "" {
		ip = v
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE devices
SET online = 1,
    last_heartbeat_at_ms = ?,
    firmware_version = COALESCE(NULLIF(?, ''), firmware_version),
    hardware_type    = COALESCE(NULLIF(?, ''), hardware_type),
    last_ip          = COALESCE(?, last_ip),
    last_wifi_rssi   = COALESCE(?, last_wifi_rssi),
    updated_at_ms    = ?
WHERE device_id = ?;
`, ms, strings.TrimSpace(req.FirmwareVersion), strings.TrimSpace(req.HardwareType), ip, rssi, ms, deviceID)
		if err != nil {
			return fmt.Errorf("RecordHeartbeat update device: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return types.Device{}, err
	}
	return s.GetDevice(ctx, deviceID)
}

func (s *DeviceStore) ListDevices(ctx context.Context) ([]types.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE enabled = 1
ORDER BY device_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListDevices query: %w", err)
	}
	defer rows.Close()

	var out []types.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDevices scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DeviceStore) GetDevice(ctx context.Context, id string) (types.Device, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE device_id = ?;
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Device{}, store.ErrNotFound
	}
	if err != nil {
		return types.Device{}, fmt.Errorf("GetDevice query: %w", err)
	}
	return d, nil
}

func (s *DeviceStore) UpdateConfig(ctx context.Context, id string, cfg types.DeviceConfig) (types.DeviceConfig, error) {
	var relay any
	if cfg.RelayOpenMs != 0 {
		relay = cfg.RelayOpenMs
	}
	var offline any
	if cfg.OfflineMode != nil {
		if cfg.OfflineMode.Enabled {
			offline = 1
		} else {
			offline = 0
		}
	}
	ms := time.Now().UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE devices
SET relay_open_ms        = COALESCE(?, relay_open_ms),
    offline_mode_enabled = COALESCE(?, offline_mode_enabled),
    updated_at_ms        = ?
WHERE device_id = ?;
`, relay, offline, ms, id)
		if err != nil {
			return fmt.Errorf("UpdateConfig: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return types.DeviceConfig{}, err
	}
	d, err := s.GetDevice(ctx, id)
	if err != nil {
		return types.DeviceConfig{}, err
	}
	return d.Config, nil
}

func (s *DeviceStore) MarkOffline(ctx context.Context, cutoff time.Time) ([]types.Device, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var flipped []types.Device
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT `+deviceColumns+`
FROM devices
WHERE online = 1 AND (last_heartbeat_at_ms IS NULL OR last_heartbeat_at_ms < ?);
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("MarkOffline query: %w", err)
		}
		for rows.Next() {
			d, err := scanDevice(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("MarkOffline scan: %w", err)
			}
			d.Online = false
			flipped = append(flipped, d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, d := range flipped {
			if _, err := tx.ExecContext(ctx,
				`UPDATE devices SET online = 0, updated_at_ms = ? WHERE device_id = ?;`,
				time.Now().UTC().UnixMilli(), d.DeviceID,
			); err != nil {
				return fmt.Errorf("MarkOffline update: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flipped, nil
}
