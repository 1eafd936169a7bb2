// Package devserver assembles an in-process Portunus backend: the REST and
// realtime contract the dashboard talks to plus the door-module endpoints.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/config"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/db"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store/memory"
	sqlitestore "github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type Backend struct {
	Server   *httpapi.Server
	Hub      *httpapi.Hub
	Auth     *service.AuthService
	Watchdog *service.DeviceWatchdog

	logger  zerolog.Logger
	closers []func()
}

// New builds the backend from cfg. Devices in cfg.DevServer.KnownDevices
// are commissioned to cfg.Resource.DefaultDoorID, whose status starts
// offline and closed.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	dc := cfg.DevServer
	doorID := cfg.Resource.DefaultDoorID
	if doorID == "" {
		doorID = "door_main"
	}

	b := &Backend{logger: logger.With().Str("component", "devserver").Logger()}

	st := memory.New()
	devices, logs, err := b.openDeviceStorage(ctx, dc, doorID)
	if err != nil {
		return nil, err
	}

	hub := httpapi.NewHub(dc.HeartbeatInterval, logger)
	auth := service.NewAuthService(st, service.AuthConfig{Secret: dc.JWTSecret, TokenTTL: dc.TokenTTL}, logger)
	if err := auth.SeedAdmin(ctx, dc.AdminEmail, dc.AdminPassword); err != nil {
		b.Close()
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	if err := st.PutDoor(ctx, types.DoorStatus{DoorID: doorID, Name: doorID, LastUpdated: types.Now()}); err != nil {
		b.Close()
		return nil, fmt.Errorf("seed door: %w", err)
	}

	registry := service.NewDeviceRegistry(devices)
	doors := service.NewDoorService(st, hub, logger)

	b.Hub = hub
	b.Auth = auth
	b.Watchdog = service.NewDeviceWatchdog(devices, doors, service.WatchdogConfig{OfflineAfter: dc.OfflineAfter}, logger)
	b.Server = httpapi.NewServer(httpapi.Dependencies{
		Logger:  logger,
		Addr:    dc.Addr,
		Auth:    auth,
		Users:   service.NewUserService(st, hub, logger),
		Cards:   service.NewCardService(st, st, logger),
		Devices: registry,
		Doors:   doors,
		Access: service.NewAccessService(service.AccessDeps{
			Registry:  registry,
			Cards:     st,
			Users:     st,
			Logs:      logs,
			Policy:    service.AccessPolicy{AllowAll: dc.AllowAll},
			Publisher: hub,
			Logger:    logger,
		}),
		Heartbeat: service.NewHeartbeatService(registry, doors, logger),
		Hub:       hub,
	})

	return b, nil
}

func (b *Backend) openDeviceStorage(ctx context.Context, dc config.DevServerConfig, doorID string) (store.DeviceStore, store.AccessLogStore, error) {
	if dc.Storage != "sqlite" {
		return memory.NewDeviceStore(dc.KnownDevices, doorID), memory.NewAccessLogStore(), nil
	}

	conn, err := db.Open(ctx, dc.DBPath)
	if err != nil {
		return nil, nil, err
	}
	writer := db.NewWorker(conn)
	b.closers = append(b.closers, writer.Close, func() { _ = conn.Close() })

	devices := sqlitestore.NewDeviceStore(conn, writer)
	for _, id := range dc.KnownDevices {
		if err := devices.Commission(ctx, id, doorID); err != nil {
			b.Close()
			return nil, nil, fmt.Errorf("commission %s: %w", id, err)
		}
	}
	b.logger.Info().Str("path", dc.DBPath).Int("devices", len(dc.KnownDevices)).Msg("sqlite device storage ready")
	return devices, sqlitestore.NewAccessLogStore(conn, writer), nil
}

func (b *Backend) Handler() http.Handler { return b.Server.Handler() }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (b *Backend) Run(ctx context.Context) error {
	b.Watchdog.Start(ctx)
	defer b.Watchdog.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	b.logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases storage. Call after Run returns.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
