package models

import "maps"

// Preferences is a flat mapping of setting name to value.
type Preferences map[string]any

func DefaultPreferences() Preferences {
	return Preferences{"darkMode": false, "notifications": false}
}

// Normalize never returns nil.
func (p Preferences) Normalize() Preferences {
	if p == nil {
		return Preferences{}
	}
	return p
}

func (p Preferences) Clone() Preferences {
	if p == nil {
		return Preferences{}
	}
	return maps.Clone(p)
}
