package resource_test

import (
	"context"
	"errors"
	"sync"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

var errBackend = errors.New("backend unavailable")

// fakeAPI is an in-memory stand-in for the REST client. Set fail to make
// every call return errBackend.
type fakeAPI struct {
	mu      sync.Mutex
	fail    bool
	calls   map[string]int
	users   []types.User
	cards   []types.Card
	devices []types.Device
	doors   map[string]types.DoorStatus
	logs    []types.AccessLogEntry
	stats   types.AccessStats
	lastCfg types.DeviceConfig
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}, doors: map[string]types.DoorStatus{}}
}

func (f *fakeAPI) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.fail {
		return errBackend
	}
	return nil
}

func (f *fakeAPI) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) ListUsers(context.Context) ([]types.User, error) {
	if err := f.enter("ListUsers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.User(nil), f.users...), nil
}

func (f *fakeAPI) CreateUser(_ context.Context, in types.UserInput) (types.User, error) {
	if err := f.enter("CreateUser"); err != nil {
		return types.User{}, err
	}
	u := types.User{ID: "U" + *in.Name, Name: *in.Name, Role: types.RoleUser, IsActive: true}
	f.mu.Lock()
	f.users = append(f.users, u)
	f.mu.Unlock()
	return u, nil
}

func (f *fakeAPI) UpdateUser(_ context.Context, id string, in types.UserInput) (types.User, error) {
	if err := f.enter("UpdateUser"); err != nil {
		return types.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].ID == id {
			if in.Name != nil {
				f.users[i].Name = *in.Name
			}
			return f.users[i], nil
		}
	}
	return types.User{}, errors.New("not found")
}

func (f *fakeAPI) DeleteUser(_ context.Context, id string) error {
	if err := f.enter("DeleteUser"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.users[:0:0]
	for _, u := range f.users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	f.users = out
	return nil
}

func (f *fakeAPI) ToggleUserActive(_ context.Context, id string) (types.User, error) {
	if err := f.enter("ToggleUserActive"); err != nil {
		return types.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].IsActive = !f.users[i].IsActive
			return f.users[i], nil
		}
	}
	return types.User{}, errors.New("not found")
}

func (f *fakeAPI) ListCards(context.Context) ([]types.Card, error) {
	if err := f.enter("ListCards"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Card(nil), f.cards...), nil
}

func (f *fakeAPI) card(id string, fn func(*types.Card)) (types.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cards {
		if f.cards[i].CardID == id {
			fn(&f.cards[i])
			return f.cards[i], nil
		}
	}
	return types.Card{}, errors.New("not found")
}

func (f *fakeAPI) UpdateCard(_ context.Context, id string, u types.CardUpdate) (types.Card, error) {
	if err := f.enter("UpdateCard"); err != nil {
		return types.Card{}, err
	}
	return f.card(id, func(c *types.Card) {
		if u.Status != nil {
			c.Status = *u.Status
		}
	})
}

func (f *fakeAPI) AssignCard(_ context.Context, id string, r types.AssignCardRequest) (types.Card, error) {
	if err := f.enter("AssignCard"); err != nil {
		return types.Card{}, err
	}
	return f.card(id, func(c *types.Card) {
		c.UserID = r.UserID
		c.EnrollMode = false
		c.Status = types.CardActive
		p := r.Policy
		c.Policy = &p
	})
}

func (f *fakeAPI) RevokeCard(_ context.Context, id, reason string) (types.Card, error) {
	if err := f.enter("RevokeCard"); err != nil {
		return types.Card{}, err
	}
	return f.card(id, func(c *types.Card) {
		c.Status = types.CardRevoked
		c.RevokedReason = reason
	})
}

func (f *fakeAPI) ReactivateCard(_ context.Context, id string) (types.Card, error) {
	if err := f.enter("ReactivateCard"); err != nil {
		return types.Card{}, err
	}
	return f.card(id, func(c *types.Card) {
		c.Status = types.CardActive
		c.RevokedReason = ""
	})
}

func (f *fakeAPI) DeleteCard(_ context.Context, id string) error {
	if err := f.enter("DeleteCard"); err != nil {
		return err
	}
	return nil
}

func (f *fakeAPI) ListDevices(context.Context) ([]types.Device, error) {
	if err := f.enter("ListDevices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Device(nil), f.devices...), nil
}

func (f *fakeAPI) UpdateDeviceConfig(_ context.Context, _ string, cfg types.DeviceConfig) (types.DeviceConfig, error) {
	if err := f.enter("UpdateDeviceConfig"); err != nil {
		return types.DeviceConfig{}, err
	}
	f.mu.Lock()
	f.lastCfg = cfg
	f.mu.Unlock()
	return cfg, nil
}

func (f *fakeAPI) DoorStatus(_ context.Context, doorID string) (types.DoorStatus, error) {
	if err := f.enter("DoorStatus"); err != nil {
		return types.DoorStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doors[doorID], nil
}

func (f *fakeAPI) SendDoorCommand(_ context.Context, doorID string, action types.DoorAction) (types.DoorCommandResult, error) {
	if err := f.enter("SendDoorCommand"); err != nil {
		return types.DoorCommandResult{}, err
	}
	return types.DoorCommandResult{DoorID: doorID, Action: action, RequestedAt: types.Now()}, nil
}

func (f *fakeAPI) AccessLogs(_ context.Context, q types.AccessLogQuery) ([]types.AccessLogEntry, error) {
	if err := f.enter("AccessLogs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]types.AccessLogEntry(nil), f.logs...)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeAPI) AccessStats(_ context.Context, period string) (types.AccessStats, error) {
	if err := f.enter("AccessStats"); err != nil {
		return types.AccessStats{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.stats
	st.Period = period
	return st, nil
}

// fakeStream hands events and state changes straight to subscribers.
type fakeStream struct {
	mu   sync.Mutex
	subs map[int]realtime.Subscriber
	next int
}

func newFakeStream() *fakeStream {
	return &fakeStream{subs: map[int]realtime.Subscriber{}}
}

func (s *fakeStream) Subscribe(sub realtime.Subscriber) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = sub
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *fakeStream) snapshot() []realtime.Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]realtime.Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

func (s *fakeStream) emit(t types.EventType, data string) {
	for _, sub := range s.snapshot() {
		if sub.OnEvent == nil {
			continue
		}
		if len(sub.Types) > 0 {
			match := false
			for _, want := range sub.Types {
				match = match || want == t
			}
			if !match {
				continue
			}
		}
		sub.OnEvent(types.Event{Type: t, Data: []byte(data)})
	}
}

func (s *fakeStream) state(st realtime.State) {
	for _, sub := range s.snapshot() {
		if sub.OnState != nil {
			sub.OnState(st)
		}
	}
}

func (s *fakeStream) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
