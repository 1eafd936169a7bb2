package resource

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type AccessStatsAPI interface {
	AccessStats(ctx context.Context, period string) (types.AccessStats, error)
}

// AccessStats holds the dashboard counters for one period. Every
// access_log event refetches them.
type AccessStats struct {
	state
	api    AccessStatsAPI
	period string
	stats  types.AccessStats
}

func NewAccessStats(api AccessStatsAPI, opts Options) *AccessStats {
	a := &AccessStats{api: api, period: "today"}
	a.logger = opts.Logger.With().Str("component", "access_stats").Logger()
	return a
}

func (a *AccessStats) Watch(stream Stream) {
	a.watch(stream, realtime.Subscriber{
		Types: []types.EventType{types.EventAccessLog},
		OnEvent: func(types.Event) {
			a.refresh(a.Refresh)
		},
	})
}

func (a *AccessStats) Stats() types.AccessStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Fetch loads the counters for period (today, week, month) and makes it the
// period later refreshes use.
func (a *AccessStats) Fetch(ctx context.Context, period string) error {
	if period == "" {
		period = "today"
	}
	a.mu.Lock()
	a.period = period
	a.mu.Unlock()
	return a.Refresh(ctx)
}

// Refresh refetches the current period.
func (a *AccessStats) Refresh(ctx context.Context) error {
	defer a.begin()()

	a.mu.RLock()
	period := a.period
	a.mu.RUnlock()

	st, err := a.api.AccessStats(ctx, period)
	if err != nil {
		return a.fail("fetch access stats", err)
	}
	a.mu.Lock()
	a.stats = st
	a.clearErrLocked()
	a.mu.Unlock()
	return nil
}
