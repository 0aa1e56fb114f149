// Package models defines the journal's domain types: entries, preferences
// and the snapshot bundle exchanged by export and import.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies an entry. Older journals used epoch-millisecond numbers, so
// JSON decoding accepts numbers as well as strings.
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

// Canonical returns the trimmed form, lower-cased when the value is a UUID.
func (id ID) Canonical() ID {
	s := strings.TrimSpace(string(id))
	if u, err := uuid.Parse(s); err == nil {
		return ID(u.String())
	}
	return ID(s)
}

// Equal compares two identifiers by canonical value.
func (id ID) Equal(other ID) bool {
	return id.Canonical() == other.Canonical()
}

func (id ID) IsZero() bool {
	return id.Canonical() == ""
}

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s).Canonical()
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(b), err)
	}
	*id = ID(n.String())
	return nil
}
