package types

import "errors"

type DoorAction string

const (
	DoorUnlock DoorAction = "unlock"
	DoorLock   DoorAction = "lock"
)

var ErrInvalidDoorAction = errors.New("door action must be unlock or lock")

func (a DoorAction) Validate() error {
	switch a {
	case DoorUnlock, DoorLock:
		return nil
	}
	return ErrInvalidDoorAction
}

type DoorStatus struct {
	DoorID      string    `json:"doorId"`
	Name        string    `json:"name,omitempty"`
	IsOpen      bool      `json:"isOpen"`
	IsOnline    bool      `json:"isOnline"`
	LastUpdated Timestamp `json:"lastUpdated"`
}

type DoorCommand struct {
	Action DoorAction `json:"action"`
}

type DoorCommandResult struct {
	DoorID      string     `json:"doorId"`
	Action      DoorAction `json:"action"`
	RequestedAt Timestamp  `json:"requestedAt"`
}
