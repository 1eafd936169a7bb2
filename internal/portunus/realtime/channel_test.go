package realtime_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/logging"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/realtime"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session/memory"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

const waitFor = 2 * time.Second

// streamServer serves scripted SSE frames, then holds the stream open
// until the client goes away.
type streamServer struct {
	frames  []string
	opened  atomic.Int32
	closed  chan struct{}
	lastTok atomic.Value
}

func newStreamServer(t *testing.T, frames ...string) (*streamServer, *httptest.Server) {
	t.Helper()
	s := &streamServer{frames: frames, closed: make(chan struct{}, 16)}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *streamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/realtime/events" {
		http.NotFound(w, r)
		return
	}
	s.opened.Add(1)
	s.lastTok.Store(r.URL.Query().Get("token"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher := w.(http.Flusher)
	for _, f := range s.frames {
		fmt.Fprint(w, f)
	}
	flusher.Flush()

	<-r.Context().Done()
	s.closed <- struct{}{}
}

func frame(event, data string) string {
	return "event: " + event + "\ndata: " + data + "\n\n"
}

func newSession(t *testing.T, token string) *session.Session {
	t.Helper()
	s := session.New(memory.New(), logging.Discard())
	if token != "" {
		require.NoError(t, s.SetToken(context.Background(), token))
	}
	return s
}

func newChannel(srv *httptest.Server, tokens realtime.TokenSource, after func(time.Duration) <-chan time.Time) *realtime.Channel {
	return realtime.New(realtime.Options{
		BaseURL: srv.URL + "/api",
		Tokens:  tokens,
		After:   after,
		Logger:  logging.Discard(),
	})
}

func waitState(t *testing.T, ch *realtime.Channel, want realtime.State) {
	t.Helper()
	require.Eventually(t, func() bool { return ch.State() == want }, waitFor, 5*time.Millisecond,
		"state never became %s (is %s)", want, ch.State())
}

func TestChannel_NoTokenStaysDisconnected(t *testing.T) {
	ss, srv := newStreamServer(t)
	ch := newChannel(srv, newSession(t, ""), nil)

	unsub := ch.Subscribe(realtime.Subscriber{})
	defer unsub()

	// Give the reader goroutine time to run.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, realtime.Disconnected, ch.State())
	assert.Zero(t, ss.opened.Load())
}

func TestChannel_DispatchOrderAndFilter(t *testing.T) {
	ss, srv := newStreamServer(t,
		frame("connected", `{"clientId":"c1"}`),
		frame("door_status", `{"doorId":"door_main","isOpen":true}`),
		frame("heartbeat", `{"ts":1}`),
		frame("mystery", `{}`),
		frame("access_log", `{"id":"L1"}`),
		frame("user_update", `{"id":"U1","name":"Ada"}`),
	)
	sess := newSession(t, "")
	ch := newChannel(srv, sess, nil)
	defer ch.Close()

	var (
		mu      sync.Mutex
		all     []types.EventType
		doors   []string
		states  []realtime.State
		allDone = make(chan struct{})
	)
	unsubA := ch.Subscribe(realtime.Subscriber{
		OnEvent: func(ev types.Event) {
			mu.Lock()
			all = append(all, ev.Type)
			n := len(all)
			mu.Unlock()
			if n == 3 {
				close(allDone)
			}
		},
		OnState: func(s realtime.State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})
	defer unsubA()
	unsubB := ch.Subscribe(realtime.Subscriber{
		Types: []types.EventType{types.EventDoorStatus},
		OnEvent: func(ev types.Event) {
			mu.Lock()
			doors = append(doors, string(ev.Data))
			mu.Unlock()
		},
	})
	defer unsubB()

	// Both subscribers are registered before the stream opens.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, sess.SetToken(context.Background(), "tok/1"))
	ch.Connect()

	select {
	case <-allDone:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for events")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []types.EventType{types.EventDoorStatus, types.EventAccessLog, types.EventUserUpdate}, all)
	assert.Equal(t, []string{`{"doorId":"door_main","isOpen":true}`}, doors)
	assert.Equal(t, []realtime.State{realtime.Connecting, realtime.Connected}, states)
	assert.True(t, ch.IsConnected())
	assert.False(t, ch.LastHeartbeat().IsZero())
	assert.Equal(t, int32(1), ss.opened.Load(), "subscribers share one connection")
	assert.Equal(t, "tok/1", ss.lastTok.Load())
}

func TestChannel_LateSubscriberToldConnected(t *testing.T) {
	_, srv := newStreamServer(t, frame("connected", `{}`))
	ch := newChannel(srv, newSession(t, "tok"), nil)
	defer ch.Close()

	unsub := ch.Subscribe(realtime.Subscriber{})
	defer unsub()
	waitState(t, ch, realtime.Connected)

	var got atomic.Int32
	unsub2 := ch.Subscribe(realtime.Subscriber{OnState: func(s realtime.State) {
		if s == realtime.Connected {
			got.Add(1)
		}
	}})
	defer unsub2()
	assert.Equal(t, int32(1), got.Load())
}

// The channel retries after every failure with the same fixed delay and
// never gives up.
func TestChannel_ReconnectFixedDelayNoCap(t *testing.T) {
	const failures = 12

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	var (
		mu     sync.Mutex
		delays []time.Duration
	)
	blocked := make(chan struct{})
	after := func(d time.Duration) <-chan time.Time {
		mu.Lock()
		defer mu.Unlock()
		delays = append(delays, d)
		fire := make(chan time.Time, 1)
		if len(delays) < failures {
			fire <- time.Now()
		} else if len(delays) == failures {
			close(blocked)
		}
		return fire
	}

	ch := newChannel(srv, newSession(t, "tok"), after)
	var errCount atomic.Int32
	unsub := ch.Subscribe(realtime.Subscriber{OnError: func(error) { errCount.Add(1) }})
	defer unsub()

	select {
	case <-blocked:
	case <-time.After(waitFor):
		t.Fatal("reconnect loop stalled")
	}

	assert.Equal(t, int32(failures), attempts.Load())
	assert.Equal(t, int32(failures), errCount.Load())
	mu.Lock()
	for i, d := range delays {
		assert.Equal(t, 5*time.Second, d, "delay %d", i)
	}
	mu.Unlock()
	assert.Equal(t, realtime.Reconnecting, ch.State())

	ch.Close()
	assert.Equal(t, realtime.Disconnected, ch.State())
}

func TestChannel_ServerCloseTriggersReconnect(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := attempts.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, frame("connected", fmt.Sprintf(`{"clientId":"c%d"}`, n)))
		// Return immediately: the server ends the stream.
	}))
	t.Cleanup(srv.Close)

	fired := make(chan time.Duration, 1)
	after := func(d time.Duration) <-chan time.Time {
		select {
		case fired <- d:
		default:
		}
		return make(chan time.Time)
	}

	ch := newChannel(srv, newSession(t, "tok"), after)
	defer ch.Close()
	errs := make(chan error, 1)
	unsub := ch.Subscribe(realtime.Subscriber{OnError: func(err error) {
		select {
		case errs <- err:
		default:
		}
	}})
	defer unsub()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, realtime.ErrStreamClosed)
	case <-time.After(waitFor):
		t.Fatal("no error reported")
	}
	assert.Equal(t, 5*time.Second, <-fired)
	waitState(t, ch, realtime.Reconnecting)
}

func TestChannel_LastUnsubscribeClosesTransport(t *testing.T) {
	ss, srv := newStreamServer(t, frame("connected", `{}`))
	ch := newChannel(srv, newSession(t, "tok"), nil)

	unsubA := ch.Subscribe(realtime.Subscriber{})
	unsubB := ch.Subscribe(realtime.Subscriber{})
	waitState(t, ch, realtime.Connected)

	unsubA()
	unsubA()
	assert.True(t, ch.IsConnected(), "one subscriber left")

	unsubB()
	select {
	case <-ss.closed:
	case <-time.After(waitFor):
		t.Fatal("transport not closed after last unsubscribe")
	}
	assert.Equal(t, realtime.Disconnected, ch.State())
	assert.Equal(t, int32(1), ss.opened.Load())
}

func TestChannel_CloseThenConnectReopens(t *testing.T) {
	ss, srv := newStreamServer(t, frame("connected", `{}`))
	sess := newSession(t, "")
	ch := newChannel(srv, sess, nil)

	unsub := ch.Subscribe(realtime.Subscriber{})
	defer unsub()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, realtime.Disconnected, ch.State())

	// Login.
	require.NoError(t, sess.SetToken(context.Background(), "tok"))
	ch.Connect()
	waitState(t, ch, realtime.Connected)

	// Logout.
	ch.Close()
	assert.Equal(t, realtime.Disconnected, ch.State())

	ch.Connect()
	waitState(t, ch, realtime.Connected)
	ch.Close()

	assert.Equal(t, int32(2), ss.opened.Load())
}
