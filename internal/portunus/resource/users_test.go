package resource_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/logging"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/resource"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

func opts() resource.Options { return resource.Options{Logger: logging.Discard()} }

func ptr[T any](v T) *T { return &v }

func seededUsers() *fakeAPI {
	api := newFakeAPI()
	api.users = []types.User{
		{ID: "U1", Name: "Ada", Role: types.RoleUser, IsActive: true},
		{ID: "U2", Name: "Grace", Role: types.RoleAdmin, IsActive: true},
	}
	return api
}

func TestUsers_FetchAllIdempotent(t *testing.T) {
	api := seededUsers()
	u := resource.NewUsers(api, opts())
	ctx := context.Background()

	require.NoError(t, u.FetchAll(ctx))
	first := u.Users()
	require.NoError(t, u.FetchAll(ctx))

	assert.Equal(t, first, u.Users())
	assert.Len(t, first, 2)
	assert.False(t, u.Loading())
	assert.Empty(t, u.Err())
}

func TestUsers_FetchFailureKeepsLastGood(t *testing.T) {
	api := seededUsers()
	u := resource.NewUsers(api, opts())
	ctx := context.Background()
	require.NoError(t, u.FetchAll(ctx))

	api.setFail(true)
	err := u.FetchAll(ctx)
	require.ErrorIs(t, err, errBackend)

	assert.Len(t, u.Users(), 2)
	assert.Equal(t, errBackend.Error(), u.Err())
	assert.False(t, u.Loading(), "loading cleared on failure")

	api.setFail(false)
	require.NoError(t, u.FetchAll(ctx))
	assert.Empty(t, u.Err(), "success clears the error")
}

func TestUsers_LoadingDuringFetch(t *testing.T) {
	u := resource.NewUsers(seededUsers(), opts())
	var seen []bool
	u.OnChange(func() { seen = append(seen, u.Loading()) })

	require.NoError(t, u.FetchAll(context.Background()))
	assert.Equal(t, []bool{true, false}, seen)
}

func TestUsers_MutationsPatchLocally(t *testing.T) {
	api := seededUsers()
	u := resource.NewUsers(api, opts())
	ctx := context.Background()
	require.NoError(t, u.FetchAll(ctx))

	created, err := u.Create(ctx, types.UserInput{Name: ptr("Linus")})
	require.NoError(t, err)
	got, ok := u.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Linus", got.Name)

	_, err = u.Update(ctx, "U1", types.UserInput{Name: ptr("Ada L.")})
	require.NoError(t, err)
	got, _ = u.Get("U1")
	assert.Equal(t, "Ada L.", got.Name)

	toggled, err := u.ToggleActive(ctx, "U2")
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	got, _ = u.Get("U2")
	assert.False(t, got.IsActive)

	require.NoError(t, u.Delete(ctx, "U1"))
	_, ok = u.Get("U1")
	assert.False(t, ok)
	assert.Len(t, u.Users(), 2)

	// Local state matches a fresh fetch.
	local := u.Users()
	require.NoError(t, u.FetchAll(ctx))
	assert.ElementsMatch(t, local, u.Users())
}

func TestUsers_MutationFailureLeavesState(t *testing.T) {
	api := seededUsers()
	u := resource.NewUsers(api, opts())
	ctx := context.Background()
	require.NoError(t, u.FetchAll(ctx))
	before := u.Users()

	api.setFail(true)
	_, err := u.Update(ctx, "U1", types.UserInput{Name: ptr("nope")})
	require.Error(t, err)
	require.Error(t, u.Delete(ctx, "U2"))

	assert.Equal(t, before, u.Users())
	assert.Equal(t, errBackend.Error(), u.Err())
}

func TestUsers_RealtimeFullRecordMerges(t *testing.T) {
	api := seededUsers()
	stream := newFakeStream()
	u := resource.NewUsers(api, opts())
	u.Watch(stream)
	defer u.Close()
	require.NoError(t, u.FetchAll(context.Background()))

	stream.emit(types.EventUserUpdate, `{"id":"U1","name":"Ada (pushed)","role":"user","isActive":false,"createdAt":1771156800000}`)
	got, _ := u.Get("U1")
	assert.Equal(t, "Ada (pushed)", got.Name)
	assert.False(t, got.IsActive)

	stream.emit(types.EventUserUpdate, `{"id":"U9","name":"New","role":"user","isActive":true,"createdAt":1771156800000}`)
	_, ok := u.Get("U9")
	assert.True(t, ok)

	stream.emit(types.EventUserUpdate, `{"id":"U2","deleted":true}`)
	_, ok = u.Get("U2")
	assert.False(t, ok)
	assert.Equal(t, 1, api.count("ListUsers"), "no refetch for full records")
}

// A realtime record for the same id supersedes what a mutation wrote.
func TestUsers_RealtimeSupersedesLocalPatch(t *testing.T) {
	api := seededUsers()
	stream := newFakeStream()
	u := resource.NewUsers(api, opts())
	u.Watch(stream)
	defer u.Close()
	ctx := context.Background()
	require.NoError(t, u.FetchAll(ctx))

	_, err := u.Update(ctx, "U1", types.UserInput{Name: ptr("local")})
	require.NoError(t, err)
	stream.emit(types.EventUserUpdate, `{"id":"U1","name":"server","role":"user","isActive":true,"createdAt":1771156800000}`)

	got, _ := u.Get("U1")
	assert.Equal(t, "server", got.Name)
}

func TestUsers_PartialPayloadRefetches(t *testing.T) {
	api := seededUsers()
	stream := newFakeStream()
	u := resource.NewUsers(api, opts())
	u.Watch(stream)
	defer u.Close()
	require.NoError(t, u.FetchAll(context.Background()))

	stream.emit(types.EventUserUpdate, `{"userId":"U1","changed":["isActive"]}`)
	require.Eventually(t, func() bool { return api.count("ListUsers") == 2 }, time.Second, 5*time.Millisecond)
}

// A payload naming only some fields must not overwrite the cached record.
func TestUsers_IncompleteRecordKeepsFields(t *testing.T) {
	api := newFakeAPI()
	api.users = []types.User{{
		ID: "U1", Name: "Alice", Email: "a@x", Role: types.RoleAdmin, IsActive: true,
		CreatedAt: types.FromMillis(1771156800000),
	}}
	stream := newFakeStream()
	u := resource.NewUsers(api, opts())
	u.Watch(stream)
	defer u.Close()
	require.NoError(t, u.FetchAll(context.Background()))

	api.mu.Lock()
	api.users[0].Name = "Alice B"
	api.mu.Unlock()
	stream.emit(types.EventUserUpdate, `{"id":"U1","name":"Alice B"}`)

	require.Eventually(t, func() bool { return api.count("ListUsers") == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		got, _ := u.Get("U1")
		return got.Name == "Alice B"
	}, time.Second, 5*time.Millisecond)

	got, _ := u.Get("U1")
	assert.Equal(t, "a@x", got.Email)
	assert.Equal(t, types.RoleAdmin, got.Role)
	assert.True(t, got.IsActive)
	assert.Equal(t, int64(1771156800000), got.CreatedAt.Millis())
}

// Fields a full record omits as empty keep their cached value.
func TestUsers_FullRecordDecodedOntoCached(t *testing.T) {
	api := newFakeAPI()
	api.users = []types.User{{ID: "U1", Name: "Alice", Email: "a@x", Role: types.RoleUser, IsActive: true}}
	stream := newFakeStream()
	u := resource.NewUsers(api, opts())
	u.Watch(stream)
	defer u.Close()
	require.NoError(t, u.FetchAll(context.Background()))

	stream.emit(types.EventUserUpdate, `{"id":"U1","name":"Alice","role":"admin","isActive":false,"createdAt":1771156800000}`)

	got, _ := u.Get("U1")
	assert.Equal(t, "a@x", got.Email)
	assert.Equal(t, types.RoleAdmin, got.Role)
	assert.False(t, got.IsActive)
	assert.Equal(t, 1, api.count("ListUsers"))
}

func TestUsers_MalformedPayloadDropped(t *testing.T) {
	api := seededUsers()
	stream := newFakeStream()
	u := resource.NewUsers(api, opts())
	u.Watch(stream)
	defer u.Close()
	require.NoError(t, u.FetchAll(context.Background()))

	stream.emit(types.EventUserUpdate, `{"id":`)
	assert.Len(t, u.Users(), 2)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, api.count("ListUsers"))
}

func TestUsers_CloseUnsubscribes(t *testing.T) {
	stream := newFakeStream()
	u := resource.NewUsers(seededUsers(), opts())
	u.Watch(stream)
	require.Equal(t, 1, stream.subscribers())

	u.Close()
	u.Close()
	assert.Zero(t, stream.subscribers())
}
