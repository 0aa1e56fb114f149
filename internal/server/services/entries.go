package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/dbx"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	jm "github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// OrderedListIndex must exist for ordered and range listings.
const OrderedListIndex = "migraines_user_start_idx"

// EntryService owns the migraines table. Every call names the caller and
// touching a row of another user fails with common.ErrorPermissionDenied.
type EntryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	indexReady  atomic.Bool
}

func NewEntryService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *EntryService {
	return &EntryService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "entry_service"),
	}
}

// CheckIndex looks the composite index up in the catalog. Until it has
// been found, ordered and range listings fail with common.ErrIndexMissing.
func (s *EntryService) CheckIndex(ctx context.Context) (bool, error) {
	ok, err := s.repomanager.Catalog(s.db).HasIndex(ctx, OrderedListIndex)
	if err != nil {
		return false, fmt.Errorf("index lookup: %w", err)
	}
	s.indexReady.Store(ok)
	if !ok {
		s.logger.Warn(ctx, "composite index missing, ordered listing disabled", "index", OrderedListIndex)
	}
	return ok, nil
}

// rowID rejects ids that cannot name a row. Postgres would refuse them as
// malformed uuids; callers get not found instead.
func rowID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("entry %q: %w", id, common.ErrorNotFound)
	}
	return u.String(), nil
}

func prepare(in jm.EntryInput) (jm.EntryInput, *int, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return in, nil, err
	}
	return in, jm.DurationMinutes(in.StartDateTime, in.EndDateTime), nil
}

// Add stores a new entry for userID. The database stamps both timestamps.
func (s *EntryService) Add(ctx context.Context, userID string, in jm.EntryInput) (jm.Entry, error) {
	in, duration, err := prepare(in)
	if err != nil {
		return jm.Entry{}, err
	}

	m, err := s.repomanager.Migraines(s.db).Create(ctx, &models.Migraine{UserID: userID, EntryInput: in, Duration: duration})
	if err != nil {
		return jm.Entry{}, fmt.Errorf("error creating entry: %w", err)
	}
	return m.Entry(), nil
}

func (s *EntryService) owned(ctx context.Context, tx dbx.DBTX, userID, id string) (*models.Migraine, error) {
	m, err := s.repomanager.Migraines(tx).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		s.logger.Warn(ctx, "foreign entry access", "user_id", userID, "entry_id", id)
		return nil, fmt.Errorf("entry %s: %w", id, common.ErrorPermissionDenied)
	}
	return m, nil
}

func (s *EntryService) Get(ctx context.Context, userID, id string) (jm.Entry, error) {
	key, err := rowID(id)
	if err != nil {
		return jm.Entry{}, err
	}
	m, err := s.owned(ctx, s.db, userID, key)
	if err != nil {
		return jm.Entry{}, err
	}
	return m.Entry(), nil
}

// Update applies patch to the stored entry. No version is compared.
func (s *EntryService) Update(ctx context.Context, userID, id string, patch jm.EntryPatch) (jm.Entry, error) {
	key, err := rowID(id)
	if err != nil {
		return jm.Entry{}, err
	}

	var out *models.Migraine
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.owned(ctx, tx, userID, key)
		if err != nil {
			return err
		}
		in, duration, err := prepare(patch.Apply(m.EntryInput))
		if err != nil {
			return err
		}
		m.EntryInput = in
		m.Duration = duration
		out, err = s.repomanager.Migraines(tx).Update(ctx, m)
		return err
	})
	if err != nil {
		return jm.Entry{}, err
	}
	return out.Entry(), nil
}

// Delete removes the entry. Deleting an entry that does not exist succeeds;
// deleting another user's entry does not.
func (s *EntryService) Delete(ctx context.Context, userID, id string) error {
	key, err := rowID(id)
	if err != nil {
		return nil
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.owned(ctx, tx, userID, key); err != nil {
			return err
		}
		return s.repomanager.Migraines(tx).Delete(ctx, key)
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}

// List returns the user's entries. Ordered listing is newest start first and
// needs the composite index.
func (s *EntryService) List(ctx context.Context, userID string, ordered bool, limit int) ([]jm.Entry, error) {
	if ordered && !s.indexReady.Load() {
		return nil, fmt.Errorf("ordered listing: %w", common.ErrIndexMissing)
	}
	rows, err := s.repomanager.Migraines(s.db).ListByUser(ctx, userID, ordered, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return toEntries(rows), nil
}

// ListInRange returns entries starting in [from, to], newest first.
func (s *EntryService) ListInRange(ctx context.Context, userID string, from, to time.Time) ([]jm.Entry, error) {
	if !s.indexReady.Load() {
		return nil, fmt.Errorf("range listing: %w", common.ErrIndexMissing)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before start", common.ErrorValidation)
	}
	rows, err := s.repomanager.Migraines(s.db).ListInRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return toEntries(rows), nil
}

func toEntries(rows []*models.Migraine) []jm.Entry {
	out := make([]jm.Entry, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Entry())
	}
	return out
}
