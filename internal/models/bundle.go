package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/tidwall/gjson"
)

const BundleVersion = 1

// Bundle is the export/import snapshot format.
type Bundle struct {
	Version     int             `json:"version"`
	ExportDate  time.Time       `json:"exportDate"`
	Entries     []Entry         `json:"entries"`
	Preferences Preferences     `json:"preferences"`
	Credential  json.RawMessage `json:"credential,omitempty"`
	// LegacyPINHash is the bare checksum string older journals exported.
	LegacyPINHash string `json:"pinHash,omitempty"`
}

func NewBundle(entries []Entry, prefs Preferences, now time.Time) *Bundle {
	if entries == nil {
		entries = []Entry{}
	}
	return &Bundle{
		Version:     BundleVersion,
		ExportDate:  now.UTC(),
		Entries:     entries,
		Preferences: prefs.Normalize(),
	}
}

func (b *Bundle) Marshal() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// ParseBundle decodes a serialized snapshot. A bundle without a non-zero
// version tag is rejected with common.ErrInvalidBundle.
func ParseBundle(data []byte) (*Bundle, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", common.ErrInvalidBundle)
	}
	v := gjson.GetBytes(data, "version")
	if !v.Exists() || v.Type != gjson.Number || v.Int() == 0 {
		return nil, fmt.Errorf("%w: missing version", common.ErrInvalidBundle)
	}
	if e := gjson.GetBytes(data, "entries"); e.Exists() && !e.IsArray() {
		return nil, fmt.Errorf("%w: entries must be an array", common.ErrInvalidBundle)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidBundle, err)
	}
	b.Preferences = b.Preferences.Normalize()
	return &b, nil
}
