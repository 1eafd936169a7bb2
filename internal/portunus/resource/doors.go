package resource

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type DoorsAPI interface {
	DoorStatus(ctx context.Context, doorID string) (types.DoorStatus, error)
	SendDoorCommand(ctx context.Context, doorID string, action types.DoorAction) (types.DoorCommandResult, error)
}

// DoorStatus tracks one door. Lock and unlock update IsOpen as soon as the
// command is accepted; the next door_status event from the server wins.
type DoorStatus struct {
	state
	api    DoorsAPI
	doorID string
	status types.DoorStatus
	known  bool
}

func NewDoorStatus(api DoorsAPI, doorID string, opts Options) *DoorStatus {
	d := &DoorStatus{api: api, doorID: doorID}
	d.logger = opts.Logger.With().Str("component", "door_status").Str("door_id", doorID).Logger()
	return d
}

func (d *DoorStatus) DoorID() string { return d.doorID }

// Watch applies door_status events for this door until Close.
func (d *DoorStatus) Watch(stream Stream) {
	d.watch(stream, realtime.Subscriber{
		Types:   []types.EventType{types.EventDoorStatus},
		OnEvent: d.apply,
	})
}

// Status returns the last known status; ok is false before the first
// fetch or event.
func (d *DoorStatus) Status() (types.DoorStatus, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status, d.known
}

func (d *DoorStatus) Fetch(ctx context.Context) error {
	defer d.begin()()

	st, err := d.api.DoorStatus(ctx, d.doorID)
	if err != nil {
		return d.fail("fetch door status", err)
	}
	d.mu.Lock()
	d.status, d.known = st, true
	d.clearErrLocked()
	d.mu.Unlock()
	return nil
}

func (d *DoorStatus) Unlock(ctx context.Context) error { return d.send(ctx, types.DoorUnlock) }
func (d *DoorStatus) Lock(ctx context.Context) error   { return d.send(ctx, types.DoorLock) }

func (d *DoorStatus) send(ctx context.Context, action types.DoorAction) error {
	res, err := d.api.SendDoorCommand(ctx, d.doorID, action)
	if err != nil {
		return d.fail(string(action), err)
	}

	d.mu.Lock()
	if !d.known {
		d.status = types.DoorStatus{DoorID: d.doorID}
		d.known = true
	}
	d.status.IsOpen = action == types.DoorUnlock
	if !res.RequestedAt.IsZero() {
		d.status.LastUpdated = res.RequestedAt
	} else {
		d.status.LastUpdated = types.Now()
	}
	d.clearErrLocked()
	d.mu.Unlock()
	d.notify()
	return nil
}

// apply overlays a door_status payload on the current status: fields the
// event names win, the rest are kept.
func (d *DoorStatus) apply(ev types.Event) {
	if !gjson.ValidBytes(ev.Data) {
		d.logger.Warn().Msg("dropping malformed door_status")
		return
	}
	if gjson.GetBytes(ev.Data, "doorId").String() != d.doorID {
		return
	}

	d.mu.Lock()
	st := d.status
	st.DoorID = d.doorID
	if err := json.Unmarshal(ev.Data, &st); err != nil {
		d.mu.Unlock()
		d.logger.Warn().Err(err).Msg("dropping malformed door_status")
		return
	}
	d.status, d.known = st, true
	d.mu.Unlock()
	d.notify()
}
