package models

import "time"

// Profile is the per-user document created on first sign-in. Preferences
// live in a JSONB column.
type Profile struct {
	UserID      string
	DisplayName string
	Email       string
	Preferences map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
