// Package dashboard assembles the sync layer: one session, one REST client,
// one realtime channel and the resource hooks that share them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/config"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/apiclient"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/resource"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type Deps struct {
	Backend    session.Backend
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type App struct {
	Session *session.Session
	Client  *apiclient.Client
	Channel *realtime.Channel

	Users       *resource.Users
	Cards       *resource.Cards
	Devices     *resource.Devices
	Door        *resource.DoorStatus
	AccessLogs  *resource.AccessLogs
	AccessStats *resource.AccessStats

	fallback      *resource.Fallback
	cron          *cron.Cron
	deviceRefresh time.Duration
	logger        zerolog.Logger

	mu          sync.Mutex
	started     bool
	deviceEntry cron.EntryID
}

// New builds the app. The door tracked is the saved defaultDoorId, or the
// configured default when nothing is saved.
func New(ctx context.Context, cfg *config.Config, d Deps) (*App, error) {
	if d.Backend == nil {
		return nil, errors.New("dashboard: session backend is required")
	}
	logger := d.Logger
	sess := session.New(d.Backend, logger)

	hc := d.HTTPClient
	if hc == nil && cfg.API.Timeout > 0 {
		hc = &http.Client{Timeout: cfg.API.Timeout}
	}
	client := apiclient.New(sess, apiclient.Options{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: hc,
		Logger:     logger,
	})
	channel := realtime.New(realtime.Options{
		BaseURL:    cfg.API.BaseURL,
		Tokens:     sess,
		RetryDelay: cfg.Realtime.RetryDelay,
		Logger:     logger,
	})

	doorID := cfg.Resource.DefaultDoorID
	settings, err := sess.Settings(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("read settings; using defaults")
	} else if settings.DefaultDoorID != "" {
		doorID = settings.DefaultDoorID
	}

	opts := resource.Options{Logger: logger}
	a := &App{
		Session:       sess,
		Client:        client,
		Channel:       channel,
		Users:         resource.NewUsers(client, opts),
		Cards:         resource.NewCards(client, opts),
		Devices:       resource.NewDevices(client, opts),
		Door:          resource.NewDoorStatus(client, doorID, opts),
		AccessLogs:    resource.NewAccessLogs(client, resource.AccessLogsOptions{Options: opts, Retain: cfg.Resource.AccessLogRetain}),
		AccessStats:   resource.NewAccessStats(client, opts),
		cron:          cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&logger)))),
		deviceRefresh: cfg.Resource.DeviceRefresh,
		logger:        logger.With().Str("component", "dashboard").Logger(),
	}
	a.fallback = resource.NewFallback(channel, a.pollRealtime, resource.FallbackOptions{
		Interval: cfg.Realtime.FallbackInterval,
		Logger:   logger,
	})
	return a, nil
}

// CheckSession asks the backend who the stored token belongs to. Any
// failure clears the token so the operator has to log in again.
func (a *App) CheckSession(ctx context.Context) (types.Account, error) {
	token, err := a.Session.Token(ctx)
	if err != nil {
		return types.Account{}, err
	}
	if token == "" {
		return types.Account{}, session.ErrNoToken
	}

	acct, err := a.Client.CurrentUser(ctx)
	if err != nil {
		if cerr := a.Session.ClearToken(ctx); cerr != nil {
			a.logger.Error().Err(cerr).Msg("clear token")
		}
		return types.Account{}, fmt.Errorf("check session: %w", err)
	}
	return acct, nil
}

func (a *App) Login(ctx context.Context, email, password string) (types.Account, error) {
	res, err := a.Client.Login(ctx, email, password)
	if err != nil {
		return types.Account{}, err
	}
	a.logger.Info().Str("account_id", res.User.ID).Msg("logged in")
	a.Channel.Connect()
	return res.User, nil
}

// Logout ends the session on the backend and locally and closes the
// realtime stream. The local token is gone even if the request fails.
func (a *App) Logout(ctx context.Context) error {
	err := a.Client.Logout(ctx)
	a.Channel.Close()
	a.logger.Info().Msg("logged out")
	return err
}

// Start attaches every hook to the realtime channel, then begins the
// polling fallback and the periodic device refresh.
func (a *App) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}
	a.started = true

	a.Users.Watch(a.Channel)
	a.Door.Watch(a.Channel)
	a.AccessLogs.Watch(a.Channel)
	a.AccessStats.Watch(a.Channel)
	a.Channel.Connect()
	a.fallback.Start()

	if a.deviceRefresh > 0 {
		a.deviceEntry = a.cron.Schedule(cron.Every(a.deviceRefresh), cron.FuncJob(func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.deviceRefresh)
			defer cancel()
			_ = a.Devices.FetchAll(ctx)
		}))
		a.cron.Start()
	}
}

// Stop detaches the hooks and stops background work. The session is kept.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}
	a.started = false

	a.fallback.Stop()
	<-a.cron.Stop().Done()
	a.cron.Remove(a.deviceEntry)
	a.Users.Close()
	a.Door.Close()
	a.AccessLogs.Close()
	a.AccessStats.Close()
	a.Channel.Close()
}

// Load fetches every resource in parallel. Each hook records its own
// error; the first one is returned.
func (a *App) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Users.FetchAll(ctx) })
	g.Go(func() error { return a.Cards.FetchAll(ctx) })
	g.Go(func() error { return a.Devices.FetchAll(ctx) })
	g.Go(func() error { return a.Door.Fetch(ctx) })
	g.Go(func() error { return a.AccessLogs.Fetch(ctx) })
	g.Go(func() error { return a.AccessStats.Refresh(ctx) })
	return g.Wait()
}

// pollRealtime refetches what the realtime stream would otherwise push.
func (a *App) pollRealtime(ctx context.Context) error {
	return errors.Join(
		a.Door.Fetch(ctx),
		a.AccessLogs.Fetch(ctx),
		a.Users.FetchAll(ctx),
	)
}
