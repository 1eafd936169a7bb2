package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

const (
	DefaultRetryDelay = 5 * time.Second
	eventsPath        = "/realtime/events"
)

// ErrStreamClosed is reported to subscribers when the server ends the
// stream without a transport error.
var ErrStreamClosed = errors.New("realtime stream closed")

// TokenSource supplies the bearer token for the stream URL.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Subscriber receives realtime events. Types filters by event type; empty
// means every dispatched type. All callbacks run on the channel's reader
// goroutine and must not call Close.
type Subscriber struct {
	Types   []types.EventType
	OnEvent func(types.Event)
	OnError func(error)
	OnState func(State)
}

func (s Subscriber) wants(t types.EventType) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, want := range s.Types {
		if want == t {
			return true
		}
	}
	return false
}

type subscription struct {
	id  uuid.UUID
	sub Subscriber
}

type Options struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
	RetryDelay time.Duration
	// After schedules the reconnect delay; defaults to time.After.
	After  func(time.Duration) <-chan time.Time
	Logger zerolog.Logger
}

// Channel is the single realtime connection shared by every resource. The
// transport opens when the first subscriber arrives and closes once the
// last one leaves. After a failure it retries every RetryDelay for as long
// as it has subscribers.
type Channel struct {
	baseURL    string
	tokens     TokenSource
	http       *http.Client
	retryDelay time.Duration
	after      func(time.Duration) <-chan time.Time
	logger     zerolog.Logger

	mu     sync.Mutex
	subs   []subscription
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	lastHB time.Time
}

func New(opts Options) *Channel {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	hc := opts.HTTPClient
	if hc == nil {
		// No client timeout: the stream is long-lived.
		hc = &http.Client{}
	}
	after := opts.After
	if after == nil {
		after = time.After
	}
	return &Channel{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		tokens:     opts.Tokens,
		http:       hc,
		retryDelay: delay,
		after:      after,
		logger:     opts.Logger.With().Str("component", "realtime").Logger(),
		state:      Disconnected,
	}
}

// Subscribe registers s and opens the transport if this is the first
// subscriber. A subscriber joining a live stream is told it is Connected
// straight away. The returned func removes s; it is safe to call twice.
func (c *Channel) Subscribe(s Subscriber) (unsubscribe func()) {
	id := uuid.New()

	c.mu.Lock()
	c.subs = append(c.subs, subscription{id: id, sub: s})
	c.startLocked()
	st := c.state
	c.mu.Unlock()

	if st == Connected && s.OnState != nil {
		s.OnState(st)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}
}

func (c *Channel) unsubscribe(id uuid.UUID) {
	c.mu.Lock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			break
		}
	}
	if len(c.subs) > 0 {
		c.mu.Unlock()
		return
	}
	// Unsubscribe may run on the reader goroutine, so don't wait for it.
	cancel := c.cancel
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.logger.Debug().Msg("last subscriber left; closing stream")
	}
	c.setState(Disconnected, nil)
}

// Connect opens the transport for the current subscribers if it is not
// already running. Call it after login.
func (c *Channel) Connect() {
	c.mu.Lock()
	c.startLocked()
	c.mu.Unlock()
}

// Close tears down the transport and waits for the reader to exit.
// Subscribers stay registered; Connect reopens the stream for them.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		c.logger.Info().Msg("realtime stream closed")
	}
	c.setState(Disconnected, nil)
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) IsConnected() bool { return c.State() == Connected }

// LastHeartbeat is the time the last heartbeat event arrived.
func (c *Channel) LastHeartbeat() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHB
}

func (c *Channel) startLocked() {
	if c.cancel != nil || len(c.subs) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	go c.run(ctx, done)
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("read session token")
		}
		if token == "" {
			c.logger.Info().Msg("no session token; realtime stays disconnected")
			c.mu.Lock()
			current := c.done == done
			if current {
				c.cancel, c.done = nil, nil
			}
			c.mu.Unlock()
			if current {
				c.setState(Disconnected, nil)
			}
			return
		}

		c.setState(Connecting, done)
		err = c.stream(ctx, token, done)
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn().Err(err).Dur("retry_in", c.retryDelay).Msg("realtime stream lost")
		c.notifyError(err)
		c.setState(Reconnecting, done)

		select {
		case <-ctx.Done():
			return
		case <-c.after(c.retryDelay):
		}
		c.logger.Info().Msg("realtime reconnecting")
	}
}

func (c *Channel) stream(ctx context.Context, token string, done chan struct{}) error {
	endpoint := c.baseURL + eventsPath + "?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}

	r := newSSEReader(resp.Body)
	for {
		m, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			return err
		}
		c.handle(m, done)
	}
}

func (c *Channel) handle(m message, done chan struct{}) {
	t := types.EventType(m.Event)
	switch {
	case t == types.EventConnected:
		c.logger.Info().
			Str("client_id", gjson.GetBytes(m.Data, "clientId").String()).
			Msg("realtime connected")
		c.setState(Connected, done)
	case t == types.EventHeartbeat:
		c.mu.Lock()
		c.lastHB = time.Now()
		c.mu.Unlock()
	case t.Dispatched():
		c.dispatch(types.Event{Type: t, Data: m.Data})
	default:
		c.logger.Debug().Str("event", m.Event).Msg("ignoring unknown realtime event")
	}
}

func (c *Channel) snapshot() []Subscriber {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Subscriber, len(c.subs))
	for i, s := range c.subs {
		out[i] = s.sub
	}
	return out
}

func (c *Channel) dispatch(ev types.Event) {
	for _, s := range c.snapshot() {
		if s.OnEvent != nil && s.wants(ev.Type) {
			s.OnEvent(ev)
		}
	}
}

func (c *Channel) notifyError(err error) {
	for _, s := range c.snapshot() {
		if s.OnError != nil {
			s.OnError(err)
		}
	}
}

// setState records st and notifies subscribers. A non-nil owner is the
// done channel of the reader making the change; it is ignored once that
// reader has been superseded or torn down.
func (c *Channel) setState(st State, owner chan struct{}) {
	c.mu.Lock()
	if (owner != nil && c.done != owner) || c.state == st {
		c.mu.Unlock()
		return
	}
	c.state = st
	c.mu.Unlock()

	for _, s := range c.snapshot() {
		if s.OnState != nil {
			s.OnState(st)
		}
	}
}
