package local

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/models"
)

// GetPreferences returns the stored preferences, or the defaults when the
// slot is absent.
func (s *Store) GetPreferences(ctx context.Context) (models.Preferences, error) {
	var prefs models.Preferences
	found, err := readJSON(ctx, s.repo(), SlotPreferences, &prefs)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if !found {
		return models.DefaultPreferences(), nil
	}
	return prefs.Normalize(), nil
}

// SavePreferences replaces the preferences slot.
func (s *Store) SavePreferences(ctx context.Context, prefs models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(ctx, s.repo(), SlotPreferences, prefs.Normalize()); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
