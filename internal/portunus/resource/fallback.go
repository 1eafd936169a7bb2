package resource

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
)

const DefaultFallbackInterval = 5 * time.Second

type FallbackOptions struct {
	Interval time.Duration
	Logger   zerolog.Logger
}

// Fallback polls fetch on a fixed interval while the realtime channel is
// not connected. It runs beside the channel's own reconnect loop and goes
// quiet once the channel reports Connected.
type Fallback struct {
	stream   Stream
	fetch    func(context.Context) error
	interval time.Duration
	logger   zerolog.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	entry   cron.EntryID
	polling bool
	started bool
	unsub   func()
}

func NewFallback(stream Stream, fetch func(context.Context) error, opts FallbackOptions) *Fallback {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultFallbackInterval
	}
	f := &Fallback{
		stream:   stream,
		fetch:    fetch,
		interval: interval,
		logger:   opts.Logger.With().Str("component", "fallback").Logger(),
	}
	f.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&f.logger))))
	return f
}

// Start begins polling and listens for the channel to connect. If the
// channel is already connected polling stops straight away.
func (f *Fallback) Start() {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	f.cron.Start()
	f.setPolling(true)

	unsub := f.stream.Subscribe(realtime.Subscriber{OnState: f.onState})
	f.mu.Lock()
	f.unsub = unsub
	f.mu.Unlock()
}

// Stop ends polling, detaches from the channel and waits for a running
// poll to finish.
func (f *Fallback) Stop() {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return
	}
	f.started = false
	unsub := f.unsub
	f.unsub = nil
	f.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	f.setPolling(false)
	<-f.cron.Stop().Done()
}

// Polling reports whether the poll schedule is active.
func (f *Fallback) Polling() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polling
}

func (f *Fallback) onState(st realtime.State) {
	switch st {
	case realtime.Connected:
		f.setPolling(false)
	case realtime.Reconnecting:
		f.setPolling(true)
	}
}

func (f *Fallback) setPolling(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if on == f.polling {
		return
	}
	if !on {
		f.cron.Remove(f.entry)
		f.polling = false
		f.logger.Debug().Msg("realtime connected; polling stopped")
		return
	}
	if !f.started {
		return
	}
	f.entry = f.cron.Schedule(cron.Every(f.interval), cron.FuncJob(f.poll))
	f.polling = true
	f.logger.Debug().Dur("interval", f.interval).Msg("realtime unavailable; polling")
}

func (f *Fallback) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), f.interval)
	defer cancel()
	if err := f.fetch(ctx); err != nil {
		f.logger.Warn().Err(err).Msg("fallback poll failed")
	}
}
