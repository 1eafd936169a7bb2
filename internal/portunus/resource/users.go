package resource

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type UsersAPI interface {
	ListUsers(ctx context.Context) ([]types.User, error)
	CreateUser(ctx context.Context, in types.UserInput) (types.User, error)
	UpdateUser(ctx context.Context, id string, in types.UserInput) (types.User, error)
	DeleteUser(ctx context.Context, id string) error
	ToggleUserActive(ctx context.Context, id string) (types.User, error)
}

// Users is the synchronized user list.
type Users struct {
	state
	api   UsersAPI
	users []types.User
}

func NewUsers(api UsersAPI, opts Options) *Users {
	u := &Users{api: api}
	u.logger = opts.Logger.With().Str("component", "users").Logger()
	return u
}

// Watch applies user_update events from stream until Close.
func (u *Users) Watch(stream Stream) {
	u.watch(stream, realtime.Subscriber{
		Types:   []types.EventType{types.EventUserUpdate},
		OnEvent: u.apply,
	})
}

// Users returns a copy of the current list.
func (u *Users) Users() []types.User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]types.User, len(u.users))
	copy(out, u.users)
	return out
}

func (u *Users) Get(id string) (types.User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.getLocked(id)
}

// FetchAll replaces the list from the backend. On failure the last good
// list is kept.
func (u *Users) FetchAll(ctx context.Context) error {
	defer u.begin()()

	users, err := u.api.ListUsers(ctx)
	if err != nil {
		return u.fail("fetch users", err)
	}
	u.mu.Lock()
	u.users = users
	u.clearErrLocked()
	u.mu.Unlock()
	return nil
}

func (u *Users) Create(ctx context.Context, in types.UserInput) (types.User, error) {
	created, err := u.api.CreateUser(ctx, in)
	if err != nil {
		return types.User{}, u.fail("create user", err)
	}
	u.mu.Lock()
	u.upsertLocked(created)
	u.clearErrLocked()
	u.mu.Unlock()
	u.notify()
	return created, nil
}

func (u *Users) Update(ctx context.Context, id string, in types.UserInput) (types.User, error) {
	updated, err := u.api.UpdateUser(ctx, id, in)
	if err != nil {
		return types.User{}, u.fail("update user", err)
	}
	u.mu.Lock()
	u.upsertLocked(updated)
	u.clearErrLocked()
	u.mu.Unlock()
	u.notify()
	return updated, nil
}

func (u *Users) ToggleActive(ctx context.Context, id string) (types.User, error) {
	updated, err := u.api.ToggleUserActive(ctx, id)
	if err != nil {
		return types.User{}, u.fail("toggle user", err)
	}
	u.mu.Lock()
	u.upsertLocked(updated)
	u.clearErrLocked()
	u.mu.Unlock()
	u.notify()
	return updated, nil
}

func (u *Users) Delete(ctx context.Context, id string) error {
	if err := u.api.DeleteUser(ctx, id); err != nil {
		return u.fail("delete user", err)
	}
	u.mu.Lock()
	u.removeLocked(id)
	u.clearErrLocked()
	u.mu.Unlock()
	u.notify()
	return nil
}

// userRecordFields must all be present for a user_update to be merged in
// place. Anything less is treated as a change notice and refetched.
var userRecordFields = []string{"id", "name", "role", "isActive", "createdAt"}

// apply reconciles one user_update payload. A full record is decoded onto
// the cached user, a deletion removes the id, and anything else triggers a
// refetch.
func (u *Users) apply(ev types.Event) {
	if !gjson.ValidBytes(ev.Data) {
		u.logger.Warn().Str("event", string(ev.Type)).Msg("dropping malformed realtime payload")
		return
	}
	probe := gjson.ParseBytes(ev.Data)
	id := probe.Get("id").String()

	switch {
	case id != "" && probe.Get("deleted").Bool():
		u.mu.Lock()
		u.removeLocked(id)
		u.mu.Unlock()
		u.notify()

	case id != "" && hasAll(probe, userRecordFields):
		u.mu.Lock()
		upd := types.UserUpdate{}
		if cur, ok := u.getLocked(id); ok {
			upd.User = cur
		}
		if err := json.Unmarshal(ev.Data, &upd); err != nil {
			u.mu.Unlock()
			u.logger.Warn().Err(err).Msg("dropping malformed user_update")
			return
		}
		u.upsertLocked(upd.User)
		u.mu.Unlock()
		u.notify()

	default:
		u.logger.Debug().Msg("partial user_update; refetching users")
		u.refresh(u.FetchAll)
	}
}

func hasAll(r gjson.Result, fields []string) bool {
	for _, f := range fields {
		if !r.Get(f).Exists() {
			return false
		}
	}
	return true
}

func (u *Users) getLocked(id string) (types.User, bool) {
	for _, x := range u.users {
		if x.ID == id {
			return x, true
		}
	}
	return types.User{}, false
}

func (u *Users) upsertLocked(x types.User) {
	for i := range u.users {
		if u.users[i].ID == x.ID {
			u.users[i] = x
			return
		}
	}
	u.users = append(u.users, x)
}

func (u *Users) removeLocked(id string) {
	out := u.users[:0:0]
	for _, x := range u.users {
		if x.ID != id {
			out = append(out, x)
		}
	}
	u.users = out
}
