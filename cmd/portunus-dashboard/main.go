package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/config"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/dashboard"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/db"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/logging"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session"
	sessionmem "github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session/memory"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session/redisstore"
	sessionsqlite "github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session/sqlite"
)

func main() {
	email := flag.String("email", "", "log in with this email before starting")
	password := flag.String("password", "", "password for -email")
	logout := flag.Bool("logout", false, "end the stored session and exit")
	whoami := flag.Bool("whoami", false, "print the stored session's claims and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("development")
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Environment).With().Str("app", "portunus-dashboard").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openSessionBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Session.Backend).Msg("open session backend")
	}
	defer closeBackend()

	app, err := dashboard.New(ctx, cfg, dashboard.Deps{Backend: backend, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("build dashboard")
	}

	switch {
	case *whoami:
		token, err := app.Session.Token(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("read token")
		}
		claims, err := session.PeekClaims(token)
		if err != nil {
			logger.Fatal().Err(err).Msg("read claims")
		}
		fmt.Printf("user=%s role=%s expires=%s\n", claims.Subject, claims.Role, claims.ExpiresAt.Format("2006-01-02 15:04:05"))
		return
	case *logout:
		if err := app.Logout(ctx); err != nil {
			logger.Warn().Err(err).Msg("backend logout failed; local session cleared")
		}
		return
	}

	if *email != "" {
		if _, err := app.Login(ctx, *email, *password); err != nil {
			logger.Fatal().Err(err).Msg("login")
		}
	}

	acct, err := app.CheckSession(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoToken) {
			logger.Fatal().Msg("not logged in; pass -email and -password")
		}
		logger.Fatal().Err(err).Msg("session rejected; log in again")
	}
	logger.Info().Str("account", acct.Email).Str("role", string(acct.Role)).Msg("session valid")

	watch(app, logger)
	app.Start()
	defer app.Stop()

	if err := app.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial load incomplete")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

func openSessionBackend(ctx context.Context, cfg *config.Config) (session.Backend, func(), error) {
	switch cfg.Session.Backend {
	case "memory":
		return sessionmem.New(), func() {}, nil
	case "redis":
		client, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client), func() { _ = client.Close() }, nil
	default:
		conn, err := db.Open(ctx, cfg.Session.DBPath)
		if err != nil {
			return nil, nil, err
		}
		writer := db.NewWorker(conn)
		return sessionsqlite.New(conn, writer), func() {
			writer.Close()
			_ = conn.Close()
		}, nil
	}
}

func watch(app *dashboard.App, logger zerolog.Logger) {
	app.Users.OnChange(func() {
		logger.Info().Int("users", len(app.Users.Users())).Str("err", app.Users.Err()).Msg("users changed")
	})
	app.Cards.OnChange(func() {
		logger.Info().Int("pending", len(app.Cards.Pending())).Int("active", len(app.Cards.Active())).Msg("cards changed")
	})
	app.Devices.OnChange(func() {
		logger.Info().Int("online", len(app.Devices.Online())).Int("offline", len(app.Devices.Offline())).Msg("devices changed")
	})
	app.Door.OnChange(func() {
		if st, ok := app.Door.Status(); ok {
			logger.Info().Str("door", st.DoorID).Bool("open", st.IsOpen).Bool("online", st.IsOnline).Msg("door changed")
		}
	})
	app.AccessLogs.OnChange(func() {
		entries := app.AccessLogs.Entries()
		if len(entries) == 0 {
			return
		}
		e := entries[0]
		logger.Info().Str("card", e.CardUID).Str("result", string(e.Result)).Str("reason", e.Reason).Msg("latest access")
	})
	app.AccessStats.OnChange(func() {
		s := app.AccessStats.Stats()
		logger.Info().Int("granted", s.Granted).Int("denied", s.Denied).Msg("access stats")
	})
}
