package store

import (
	"context"
	"errors"

	"agentconsole/internal/types"
)

// SettingsKey is the fixed key the settings object lives under.
const SettingsKey = "settings"

// SaveSettings persists the settings object.
func (s *KV) SaveSettings(ctx context.Context, settings types.Settings) error {
	return s.PutJSON(ctx, SettingsKey, settings)
}

// LoadSettings returns the persisted settings. ok is false when nothing
// has been saved yet.
func (s *KV) LoadSettings(ctx context.Context) (settings types.Settings, ok bool, err error) {
	err = s.GetJSON(ctx, SettingsKey, &settings)
	if errors.Is(err, ErrNotFound) {
		return types.Settings{}, false, nil
	}
	if err != nil {
		return types.Settings{}, false, err
	}
	return settings, true, nil
}
