package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// Settings is client-only convenience state. It is never synchronised with
// the backend.
type Settings struct {
	AutoLockDelayMs int    `json:"autoLockDelay"`
	DefaultDoorID   string `json:"defaultDoorId"`
}

func DefaultSettings() Settings {
	return Settings{
		AutoLockDelayMs: 5000,
		DefaultDoorID:   "door_main",
	}
}

// Settings returns the saved settings. A missing or unparseable value
// yields the defaults; only a backend failure is an error.
func (s *Session) Settings(ctx context.Context) (Settings, error) {
	v, ok, err := s.backend.Get(ctx, SettingsKey)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("read settings: %w", err)
	}
	if !ok {
		return DefaultSettings(), nil
	}

	out := DefaultSettings()
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		s.logger.Warn().Err(err).Msg("failed to parse saved settings, using defaults")
		return DefaultSettings(), nil
	}
	if out.DefaultDoorID == "" {
		out.DefaultDoorID = DefaultSettings().DefaultDoorID
	}
	return out, nil
}

func (s *Session) SaveSettings(ctx context.Context, st Settings) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.backend.Put(ctx, SettingsKey, string(b)); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}
