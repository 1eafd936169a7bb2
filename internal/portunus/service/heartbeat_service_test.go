package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/logging"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// ── HeartbeatService ─────────────────────────────────────────────────────────

func TestHeartbeat_KnownDevice_DoorOnline(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	ctx := context.Background()

	closed := false
	resp, err := f.heartbeat.Record(ctx, types.HeartbeatRequest{
		DeviceID:        "door-001",
		FirmwareVersion: "1.4.2",
		DoorClosed:      &closed,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !resp.OK || !resp.Known {
		t.Errorf("expected ok+known, got %+v", resp)
	}

	dev, _ := f.devices.GetDevice(ctx, "door-001")
	if !dev.Online || dev.FirmwareVersion != "1.4.2" {
		t.Errorf("unexpected device snapshot: %+v", dev)
	}

	door, err := f.doors.Get(ctx, "door_main")
	if err != nil {
		t.Fatalf("Get door: %v", err)
	}
	if !door.IsOnline || !door.IsOpen {
		t.Errorf("expected door online and open, got %+v", door)
	}

	events := f.pub.ofType(types.EventDoorStatus)
	if len(events) != 1 {
		t.Fatalf("expected 1 door_status event, got %d", len(events))
	}
	var st types.DoorStatus
	if err := json.Unmarshal(events[0].Data, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.DoorID != "door_main" || !st.IsOnline {
		t.Errorf("unexpected published status: %+v", st)
	}
}

func TestHeartbeat_UnknownDevice_NotStored(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})

	resp, err := f.heartbeat.Record(context.Background(), types.HeartbeatRequest{DeviceID: "rogue"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if resp.Known {
		t.Error("expected known=false")
	}
	if len(f.pub.ofType(types.EventDoorStatus)) != 0 {
		t.Error("expected no door_status for unknown device")
	}
}

func TestHeartbeat_MissingDeviceID(t *testing.T) {
	f := newFixture(nil, service.AccessPolicy{})

	_, err := f.heartbeat.Record(context.Background(), types.HeartbeatRequest{DeviceID: "  "})
	if !errors.Is(err, service.ErrInvalidDeviceID) {
		t.Fatalf("expected ErrInvalidDeviceID, got %v", err)
	}
}

// ── DeviceWatchdog ───────────────────────────────────────────────────────────

func TestDeviceWatchdog_DisabledWhenOfflineAfterZero(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	w := service.NewDeviceWatchdog(f.devices, f.doors, service.WatchdogConfig{}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	// Stop should return immediately without error.
	w.Stop()
}

func TestDeviceWatchdog_SweepMarksStaleOffline(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	ctx := context.Background()

	if _, err := f.heartbeat.Record(ctx, types.HeartbeatRequest{DeviceID: "door-001"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	w := service.NewDeviceWatchdog(f.devices, f.doors, service.WatchdogConfig{
		OfflineAfter: 90 * time.Second,
	}, logging.Discard())

	if n := w.Sweep(ctx, time.Now().UTC()); n != 0 {
		t.Errorf("expected fresh device to survive, flipped %d", n)
	}
	if n := w.Sweep(ctx, time.Now().UTC().Add(2*time.Minute)); n != 1 {
		t.Fatalf("expected 1 device flipped, got %d", n)
	}

	door, _ := f.doors.Get(ctx, "door_main")
	if door.IsOnline {
		t.Error("expected door offline after sweep")
	}
	if got := len(f.pub.ofType(types.EventDoorStatus)); got != 2 {
		t.Errorf("expected 2 door_status events (online, offline), got %d", got)
	}
}

func TestDeviceWatchdog_StopIsIdempotent(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	w := service.NewDeviceWatchdog(f.devices, f.doors, service.WatchdogConfig{
		OfflineAfter: time.Minute,
		Interval:     time.Hour,
	}, logging.Discard())

	w.Start(context.Background())
	w.Stop()
	w.Stop()
}
