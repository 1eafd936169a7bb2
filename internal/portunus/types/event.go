package types

import "encoding/json"

type EventType string

const (
	EventConnected  EventType = "connected"
	EventDoorStatus EventType = "door_status"
	EventAccessLog  EventType = "access_log"
	EventUserUpdate EventType = "user_update"
	EventHeartbeat  EventType = "heartbeat"
)

// Dispatched reports whether events of this type are forwarded to
// subscribers. connected and heartbeat are control events.
func (t EventType) Dispatched() bool {
	switch t {
	case EventDoorStatus, EventAccessLog, EventUserUpdate:
		return true
	}
	return false
}

// Event is one server-pushed realtime notification. Data is the raw JSON
// payload; it lives only for the duration of dispatch.
type Event struct {
	Type EventType
	Data json.RawMessage
}
