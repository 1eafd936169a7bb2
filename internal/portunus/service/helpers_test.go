package service_test

import (
	"encoding/json"
	"sync"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/logging"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store/memory"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type published struct {
	Type types.EventType
	Data json.RawMessage
}

// recordingPublisher keeps every published event as its JSON encoding.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(t types.EventType, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Type: t, Data: b})
}

func (p *recordingPublisher) ofType(t types.EventType) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store   *memory.Store
	devices *memory.DeviceStore
	logs    *memory.AccessLogStore
	pub     *recordingPublisher

	registry  *service.DeviceRegistry
	doors     *service.DoorService
	users     *service.UserService
	cards     *service.CardService
	access    *service.AccessService
	heartbeat *service.HeartbeatService
}

// newFixture builds the services over in-memory stores with the given
// devices commissioned to door_main.
func newFixture(knownDevices []string, policy service.AccessPolicy) *fixture {
	f := &fixture{
		store:   memory.New(),
		devices: memory.NewDeviceStore(knownDevices, "door_main"),
		logs:    memory.NewAccessLogStore(),
		pub:     &recordingPublisher{},
	}
	logger := logging.Discard()

	f.registry = service.NewDeviceRegistry(f.devices)
	f.doors = service.NewDoorService(f.store, f.pub, logger)
	f.users = service.NewUserService(f.store, f.pub, logger)
	f.cards = service.NewCardService(f.store, f.store, logger)
	f.access = service.NewAccessService(service.AccessDeps{
		Registry:  f.registry,
		Cards:     f.store,
		Users:     f.store,
		Logs:      f.logs,
		Policy:    policy,
		Publisher: f.pub,
		Logger:    logger,
	})
	f.heartbeat = service.NewHeartbeatService(f.registry, f.doors, logger)
	return f
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
