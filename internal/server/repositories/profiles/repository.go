// Package profiles stores the per-user document: display fields and the
// preferences map.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/migrainelog/internal/server/models"
)

type Repository interface {
	// Init creates the profile with empty preferences unless one exists.
	// It reports whether a row was created.
	Init(ctx context.Context, p *models.Profile) (bool, error)
	// GetPreferences returns common.ErrorNotFound when there is no profile.
	GetPreferences(ctx context.Context, userID string) (map[string]any, error)
	// SetPreferences replaces the preferences, creating the profile if needed.
	SetPreferences(ctx context.Context, userID string, prefs map[string]any) error
}
