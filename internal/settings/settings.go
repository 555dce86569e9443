// Package settings stores user preferences in the durable kv store.
package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/oneq/internal/kv"
)

// settingsKey is the kv document holding user preferences.
const settingsKey = "oneq_settings"

// Settings are the user-tunable preferences. A goal of zero means the
// goal is disabled.
type Settings struct {
	AutoPlayNextVideo bool `json:"autoPlayNextVideo"`
	DailyGoal         int  `json:"dailyGoal"`
	WeeklyGoal        int  `json:"weeklyGoal"`
}

// Default returns the out-of-box settings.
func Default() Settings {
	return Settings{
		AutoPlayNextVideo: true,
		DailyGoal:         0,
		WeeklyGoal:        0,
	}
}

// Store reads and writes settings through the kv backend.
type Store struct {
	store kv.Store
}

// NewStore creates a settings store.
func NewStore(store kv.Store) *Store {
	return &Store{store: store}
}

// Load returns the saved settings, falling back to defaults when the
// document is missing or unreadable.
func (s *Store) Load(ctx context.Context) Settings {
	data, err := s.store.Get(ctx, settingsKey)
	if err != nil {
		return Default()
	}
	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return Default()
	}
	return out
}

// Save writes the settings through to durable storage.
func (s *Store) Save(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.store.Set(ctx, settingsKey, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
