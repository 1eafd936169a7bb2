package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

const (
	defaultHubHeartbeat = 15 * time.Second
	clientBuffer        = 32
)

type frame struct {
	event types.EventType
	data  []byte
}

type hubClient struct {
	id   string
	ch   chan frame
	done chan struct{}
}

// Hub fans realtime events out to every connected dashboard as server-sent
// events. Each client has a bounded queue; a client that falls behind is
// disconnected and left to reconnect.
type Hub struct {
	heartbeat time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	clients map[string]*hubClient
	closed  bool
}

func NewHub(heartbeat time.Duration, logger zerolog.Logger) *Hub {
	if heartbeat <= 0 {
		heartbeat = defaultHubHeartbeat
	}
	return &Hub{
		heartbeat: heartbeat,
		logger:    logger.With().Str("component", "hub").Logger(),
		clients:   make(map[string]*hubClient),
	}
}

// Publish implements service.Publisher.
func (h *Hub) Publish(t types.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(t)).Msg("encode event")
		return
	}
	f := frame{event: t, data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.ch <- f:
		default:
			h.logger.Warn().Str("client_id", id).Msg("client too slow; dropping")
			h.removeLocked(id)
		}
	}
}

// Clients reports how many streams are open.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close ends every open stream and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
}

func (h *Hub) add() (*hubClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &hubClient{
		id:   uuid.NewString(),
		ch:   make(chan frame, clientBuffer),
		done: make(chan struct{}),
	}
	h.clients[c.id] = c
	return c, true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// ServeHTTP streams events to one client until it disconnects, falls
// behind or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	c, ok := h.add()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "server is shutting down")
		return
	}
	defer h.remove(c.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	log := h.logger.With().Str("client_id", c.id).Logger()
	log.Info().Msg("realtime client connected")
	defer log.Info().Msg("realtime client disconnected")

	hello, _ := json.Marshal(map[string]string{"clientId": c.id})
	if err := writeFrame(w, rc, frame{event: types.EventConnected, data: hello}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case f := <-c.ch:
			if err := writeFrame(w, rc, f); err != nil {
				return
			}
		case t := <-ticker.C:
			beat, _ := json.Marshal(map[string]string{"timestamp": t.UTC().Format(time.RFC3339Nano)})
			if err := writeFrame(w, rc, frame{event: types.EventHeartbeat, data: beat}); err != nil {
				return
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, rc *http.ResponseController, f frame) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.event, f.data); err != nil {
		return err
	}
	return rc.Flush()
}
