package models

import (
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/models"
)

// Migraine is one row of the migraines table. CreatedAt and UpdatedAt are
// set by the database.
type Migraine struct {
	ID     string
	UserID string
	models.EntryInput
	Duration  *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry converts the row to the shared journal model.
func (m Migraine) Entry() models.Entry {
	return models.Entry{
		ID:         models.ID(m.ID),
		EntryInput: m.EntryInput,
		Duration:   m.Duration,
		UserID:     m.UserID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
