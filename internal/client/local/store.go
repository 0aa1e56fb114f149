// Package local implements the on-device journal store: a fixed set of named
// JSON slots kept in an SQLite database.
//
// Entries, preferences and the PIN credential each live in their own slot.
// Read-modify-write operations are serialized by the Store and run inside a
// database transaction, so a failed write never leaves a slot half updated.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/client/repositories/slots"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/dbx"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
)

const (
	SlotEntries        = "migraine_entries"
	SlotPreferences    = "user_preferences"
	SlotCredential     = "auth_credentials"
	SlotSchemaVersion  = "schema_version"
	SlotMigrationLinks = "migration_links"

	CurrentSchemaVersion = 2

	DefaultCapacity = 5 << 20
	NearLimitRatio  = 0.8

	schemaPages = 8
)

// schemaStep upgrades the slots from version v to v+1.
type schemaStep func(ctx context.Context, repo slots.Repository) error

var schemaSteps = map[int]schemaStep{
	// 1 -> 2 adds the migration_links slot, which is created lazily.
	1: func(context.Context, slots.Repository) error { return nil },
}

type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	capacity int64
	now      func() time.Time
	log      logging.Logger
}

type Option func(*Store)

// WithCapacity sets the advisory capacity in bytes. The database is also
// capped near this size, so writes past it fail with common.ErrQuotaExceeded.
func WithCapacity(bytes int64) Option {
	return func(s *Store) {
		if bytes > 0 {
			s.capacity = bytes
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps a database prepared by client.InitDatabase.
func New(db *sql.DB, log logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:       db,
		capacity: DefaultCapacity,
		now:      time.Now,
		log:      log.With("module", "local_store"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) repo() slots.Repository {
	return slots.NewSQLiteRepository(s.db)
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, repo slots.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, slots.NewSQLiteRepository(tx))
	})
}

// Initialize prepares the slots. On first run it seeds an empty entry list,
// default preferences and the schema version; on an older schema it runs
// the upgrade steps. Existing entries are never touched. Safe to call
// repeatedly.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyQuota(ctx); err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context, repo slots.Repository) error {
		return s.initialize(ctx, repo)
	})
}

func (s *Store) initialize(ctx context.Context, repo slots.Repository) error {
	raw, err := repo.Get(ctx, SlotSchemaVersion)
	if err != nil {
		return err
	}

	if raw == nil {
		s.log.Info(ctx, "seeding local store", "version", CurrentSchemaVersion)
		if err := writeJSON(ctx, repo, SlotSchemaVersion, CurrentSchemaVersion); err != nil {
			return err
		}
	} else {
		var version int
		if err := json.Unmarshal(raw, &version); err != nil {
			return fmt.Errorf("corrupt schema version %q: %w", raw, err)
		}
		if version > CurrentSchemaVersion {
			s.log.Warn(ctx, "local store has a newer schema", "version", version, "supported", CurrentSchemaVersion)
		}
		if version > 0 && version < CurrentSchemaVersion {
			s.log.Info(ctx, "upgrading local store", "from", version, "to", CurrentSchemaVersion)
			for v := version; v < CurrentSchemaVersion; v++ {
				if step, ok := schemaSteps[v]; ok {
					if err := step(ctx, repo); err != nil {
						return fmt.Errorf("schema step %d: %w", v, err)
					}
				}
			}
			if err := writeJSON(ctx, repo, SlotSchemaVersion, CurrentSchemaVersion); err != nil {
				return err
			}
		}
	}

	if err := seedIfAbsent(ctx, repo, SlotEntries, []models.Entry{}); err != nil {
		return err
	}
	return seedIfAbsent(ctx, repo, SlotPreferences, models.DefaultPreferences())
}

// applyQuota caps the database file at the capacity plus a quarter of
// headroom and a few pages for the schema itself.
func (s *Store) applyQuota(ctx context.Context) error {
	var pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return fmt.Errorf("read page size: %w", err)
	}
	if pageSize <= 0 {
		return nil
	}
	maxPages := s.capacity/pageSize*5/4 + schemaPages
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`PRAGMA max_page_count = %d`, maxPages)); err != nil {
		return fmt.Errorf("set max page count: %w", err)
	}
	return nil
}

func seedIfAbsent(ctx context.Context, repo slots.Repository, key string, v any) error {
	raw, err := repo.Get(ctx, key)
	if err != nil {
		return err
	}
	if raw != nil {
		return nil
	}
	return writeJSON(ctx, repo, key, v)
}

func writeJSON(ctx context.Context, repo slots.Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := repo.Set(ctx, key, b); err != nil {
		if dbx.IsStorageFull(err) {
			return fmt.Errorf("write %s: %w", key, common.ErrQuotaExceeded)
		}
		return err
	}
	return nil
}

// readJSON decodes a slot into v and reports whether the slot existed.
func readJSON(ctx context.Context, repo slots.Repository, key string, v any) (bool, error) {
	raw, err := repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// ClearAll erases every slot except the schema version and re-seeds the
// defaults.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.inTx(ctx, func(ctx context.Context, repo slots.Repository) error {
		version, err := repo.Get(ctx, SlotSchemaVersion)
		if err != nil {
			return err
		}
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		if version != nil {
			if err := repo.Set(ctx, SlotSchemaVersion, version); err != nil {
				return err
			}
		}
		return s.initialize(ctx, repo)
	})
	if err != nil {
		return fmt.Errorf("clear local store: %w", err)
	}
	s.log.Info(ctx, "local store cleared")
	return nil
}

// ClearMigrated removes the data that has been copied to the remote store:
// entries, preferences, the credential and the migration links.
func (s *Store) ClearMigrated(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.inTx(ctx, func(ctx context.Context, repo slots.Repository) error {
		for _, key := range []string{SlotEntries, SlotPreferences, SlotCredential, SlotMigrationLinks} {
			if err := repo.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear migrated data: %w", err)
	}
	s.log.Info(ctx, "migrated local data cleared")
	return nil
}

// Usage is advisory capacity accounting.
type Usage struct {
	EntryCount    int
	BytesUsed     int64
	BytesCapacity int64
	PercentUsed   float64
	NearLimit     bool
}

func (s *Store) StorageUsage(ctx context.Context) (Usage, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return Usage{}, err
	}
	used, err := s.repo().Size(ctx)
	if err != nil {
		return Usage{}, err
	}
	u := Usage{
		EntryCount:    len(entries),
		BytesUsed:     used,
		BytesCapacity: s.capacity,
		PercentUsed:   float64(used) / float64(s.capacity) * 100,
	}
	u.NearLimit = u.PercentUsed > NearLimitRatio*100
	return u, nil
}
