package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// DeviceWatchdog periodically marks devices offline once their last
// heartbeat is older than OfflineAfter, and takes their doors offline with
// them. It runs as a background goroutine and is safe to stop via its
// context or the Stop method.
//
// An OfflineAfter of 0 disables the watchdog entirely.
type DeviceWatchdog struct {
	store        store.DeviceStore
	doors        *DoorService
	offlineAfter time.Duration
	interval     time.Duration
	logger       zerolog.Logger
	cancel       context.CancelFunc
	done         chan struct{}
}

type WatchdogConfig struct {
	// OfflineAfter is how long a device may go without a heartbeat.
	OfflineAfter time.Duration

	// Interval is how often the watchdog sweeps. Defaults to OfflineAfter/3.
	Interval time.Duration
}

// NewDeviceWatchdog creates a watchdog but does not start it.
func NewDeviceWatchdog(s store.DeviceStore, doors *DoorService, cfg WatchdogConfig, logger zerolog.Logger) *DeviceWatchdog {
	interval := cfg.Interval
	if interval <= 0 {
		interval = cfg.OfflineAfter / 3
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &DeviceWatchdog{
		store:        s,
		doors:        doors,
		offlineAfter: cfg.OfflineAfter,
		interval:     interval,
		logger:       logger.With().Str("component", "watchdog").Logger(),
		done:         make(chan struct{}),
	}
}

// Start runs an immediate sweep, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (w *DeviceWatchdog) Start(ctx context.Context) {
	if w.offlineAfter <= 0 {
		w.logger.Info().Msg("device watchdog disabled (offline_after=0)")
		close(w.done)
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)

	go w.loop(ctx)

	w.logger.Info().
		Dur("offline_after", w.offlineAfter).
		Dur("interval", w.interval).
		Msg("device watchdog started")
}

// Stop signals the watchdog to exit and waits for it to finish.
func (w *DeviceWatchdog) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

func (w *DeviceWatchdog) loop(ctx context.Context) {
	defer close(w.done)

	w.Sweep(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			w.Sweep(ctx, t.UTC())
		}
	}
}

// Sweep marks every device silent since now-OfflineAfter offline and
// returns how many were flipped.
func (w *DeviceWatchdog) Sweep(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-w.offlineAfter)
	flipped, err := w.store.MarkOffline(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("device watchdog sweep")
		return 0
	}

	for _, d := range flipped {
		w.logger.Warn().
			Str("device_id", d.DeviceID).
			Time("last_heartbeat_at", d.LastHeartbeatAt.Time).
			Msg("device went offline")
		if d.DoorID == "" {
			continue
		}
		if _, err := w.doors.update(ctx, d.DoorID, func(s *types.DoorStatus) {
			s.IsOnline = false
		}); err != nil {
			w.logger.Error().Err(err).Str("door_id", d.DoorID).Msg("mark door offline")
		}
	}
	return len(flipped)
}
