package resource

import (
	"context"
	"encoding/json"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

const DefaultRetain = 50

type AccessLogsAPI interface {
	AccessLogs(ctx context.Context, q types.AccessLogQuery) ([]types.AccessLogEntry, error)
}

type AccessLogsOptions struct {
	Options
	// Retain caps the list; DefaultRetain when zero.
	Retain int
}

// AccessLogs holds the most recent entries, newest first. Realtime entries
// are prepended without a refetch.
type AccessLogs struct {
	state
	api     AccessLogsAPI
	retain  int
	entries []types.AccessLogEntry
}

func NewAccessLogs(api AccessLogsAPI, opts AccessLogsOptions) *AccessLogs {
	retain := opts.Retain
	if retain <= 0 {
		retain = DefaultRetain
	}
	a := &AccessLogs{api: api, retain: retain}
	a.logger = opts.Logger.With().Str("component", "access_logs").Logger()
	return a
}

func (a *AccessLogs) Retain() int { return a.retain }

// Watch prepends access_log events from stream until Close.
func (a *AccessLogs) Watch(stream Stream) {
	a.watch(stream, realtime.Subscriber{
		Types:   []types.EventType{types.EventAccessLog},
		OnEvent: a.apply,
	})
}

func (a *AccessLogs) Entries() []types.AccessLogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]types.AccessLogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Fetch loads the first page, sized to the retained count.
func (a *AccessLogs) Fetch(ctx context.Context) error {
	return a.FetchPage(ctx, 1)
}

func (a *AccessLogs) FetchPage(ctx context.Context, page int) error {
	defer a.begin()()

	entries, err := a.api.AccessLogs(ctx, types.AccessLogQuery{Page: page, Limit: a.retain})
	if err != nil {
		return a.fail("fetch access logs", err)
	}
	if len(entries) > a.retain {
		entries = entries[:a.retain]
	}
	a.mu.Lock()
	a.entries = entries
	a.clearErrLocked()
	a.mu.Unlock()
	return nil
}

func (a *AccessLogs) apply(ev types.Event) {
	var e types.AccessLogEntry
	if err := json.Unmarshal(ev.Data, &e); err != nil {
		a.logger.Warn().Err(err).Msg("dropping malformed access_log")
		return
	}
	a.mu.Lock()
	n := min(len(a.entries)+1, a.retain)
	next := make([]types.AccessLogEntry, 0, n)
	next = append(next, e)
	next = append(next, a.entries[:n-1]...)
	a.entries = next
	a.mu.Unlock()
	a.notify()
}
