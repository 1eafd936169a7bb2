package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/config"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/devserver"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("development")
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Environment).With().Str("app", "portunus-devserver").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	logger.Info().Msg("stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	backend, err := devserver.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	logger.Info().
		Str("addr", cfg.DevServer.Addr).
		Str("storage", cfg.DevServer.Storage).
		Strs("known_devices", cfg.DevServer.KnownDevices).
		Bool("allow_all", cfg.DevServer.AllowAll).
		Msg("portunus devserver listening")

	return backend.Run(ctx)
}
