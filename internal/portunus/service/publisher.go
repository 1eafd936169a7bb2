package service

import "github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"

// Publisher fans a realtime event out to connected dashboards. payload is
// JSON-encoded by the implementation.
type Publisher interface {
	Publish(t types.EventType, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(types.EventType, any) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
