// Package migraines stores journal entries in the migraines table.
package migraines

import (
	"context"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/server/models"
)

// Repository persists migraine rows. Timestamps are assigned by the
// database; updates overwrite unconditionally.
type Repository interface {
	Create(ctx context.Context, m *models.Migraine) (*models.Migraine, error)
	Get(ctx context.Context, id string) (*models.Migraine, error)
	Update(ctx context.Context, m *models.Migraine) (*models.Migraine, error)
	Delete(ctx context.Context, id string) error
	// ListByUser returns the user's rows, newest start first when ordered
	// is set and in no particular order otherwise. limit <= 0 means all.
	ListByUser(ctx context.Context, userID string, ordered bool, limit int) ([]*models.Migraine, error)
	// ListInRange returns rows whose start lies in [from, to], newest first.
	ListInRange(ctx context.Context, userID string, from, to time.Time) ([]*models.Migraine, error)
}
