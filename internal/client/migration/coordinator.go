// Package migration copies a device's local journal into the signed-in
// user's hosted store, once per session and only when the hosted store is
// still empty.
//
// The copy is additive: nothing on the server is overwritten or deleted.
// Each record that reaches the server is linked to its local id, so a retry
// after a partial failure only sends what is still missing. Local data is
// never cleared automatically.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidState        = errors.New("migration: operation not allowed in current state")
	ErrMigrationIncomplete = errors.New("migration: local data can only be cleared after a clean migration")
)

type State int

const (
	Unchecked State = iota
	Offered
	NotNeeded
	Dismissed
	Migrating
	Completed
)

func (s State) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Offered:
		return "offered"
	case NotNeeded:
		return "not needed"
	case Dismissed:
		return "dismissed"
	case Migrating:
		return "migrating"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type LocalSource interface {
	ListEntries(ctx context.Context) ([]models.Entry, error)
	GetPreferences(ctx context.Context) (models.Preferences, error)
	MigrationLinks(ctx context.Context, userID string) (map[models.ID]models.ID, error)
	LinkMigrated(ctx context.Context, userID string, localID, remoteID models.ID) error
	ClearMigrated(ctx context.Context) error
}

type RemoteTarget interface {
	AddEntry(ctx context.Context, userID string, in models.EntryInput) (models.ID, error)
	ListEntriesForUser(ctx context.Context, userID string, limit int) []models.Entry
	GetPreferences(ctx context.Context, userID string) models.Preferences
	SetPreferences(ctx context.Context, userID string, prefs models.Preferences) error
}

// Result is the tally of one Migrate run. Skipped counts records linked by
// an earlier run.
type Result struct {
	EntriesSucceeded     int
	EntriesFailed        int
	PreferencesSucceeded bool
	Skipped              int
}

// Clean reports whether everything reached the server.
func (r Result) Clean() bool {
	return r.EntriesFailed == 0 && r.PreferencesSucceeded
}

type Option func(*Coordinator)

// WithRate paces entry uploads. The default is unlimited.
func WithRate(limit rate.Limit, burst int) Option {
	return func(c *Coordinator) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithProgress registers fn to be called after every record.
func WithProgress(fn func(done, total int)) Option {
	return func(c *Coordinator) {
		c.progress = fn
	}
}

type Coordinator struct {
	local    LocalSource
	remote   RemoteTarget
	limiter  *rate.Limiter
	progress func(done, total int)
	log      logging.Logger

	mu     sync.Mutex
	state  State
	userID string
	last   *Result
}

func New(local LocalSource, remote RemoteTarget, log logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:   local,
		remote:  remote,
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     log.With("module", "migration"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastResult returns the tally of the latest run in this session.
func (c *Coordinator) LastResult() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Reset starts a new session, e.g. after sign-out.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Unchecked
	c.userID = ""
	c.last = nil
}

// Check decides whether to offer a migration to userID. It only evaluates
// once per session; a different user starts a new session.
func (c *Coordinator) Check(ctx context.Context, userID string) (State, error) {
	c.mu.Lock()
	if c.userID != userID {
		c.state = Unchecked
		c.userID = userID
		c.last = nil
	}
	if c.state != Unchecked {
		s := c.state
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	needs, err := c.needsMigration(ctx, userID)
	if err != nil {
		return Unchecked, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != userID || c.state != Unchecked {
		return c.state, nil
	}
	if needs {
		c.state = Offered
	} else {
		c.state = NotNeeded
	}
	c.log.Info(ctx, "migration checked", "user", userID, "state", c.state)
	return c.state, nil
}

func (c *Coordinator) needsMigration(ctx context.Context, userID string) (bool, error) {
	entries, err := c.local.ListEntries(ctx)
	if err != nil {
		return false, fmt.Errorf("count local entries: %w", err)
	}
	if len(entries) == 0 {
		return false, nil
	}
	if len(c.remote.ListEntriesForUser(ctx, userID, 1)) > 0 {
		return false, nil
	}
	return len(c.remote.GetPreferences(ctx, userID)) == 0, nil
}

// Decline dismisses the offer for the rest of the session.
func (c *Coordinator) Decline() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Offered {
		return fmt.Errorf("%w: %s", ErrInvalidState, c.state)
	}
	c.state = Dismissed
	return nil
}

// Migrate copies local entries one at a time, then local preferences. A
// failing record is counted and the batch goes on. It may be re-run after
// it completes.
func (c *Coordinator) Migrate(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state != Offered && c.state != Completed {
		s := c.state
		c.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidState, s)
	}
	c.state = Migrating
	userID := c.userID
	c.mu.Unlock()

	res, err := c.run(ctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Offered
		return Result{}, err
	}
	c.state = Completed
	c.last = &res
	return res, nil
}

func (c *Coordinator) run(ctx context.Context, userID string) (Result, error) {
	var res Result

	entries, err := c.local.ListEntries(ctx)
	if err != nil {
		return res, fmt.Errorf("read local entries: %w", err)
	}
	links, err := c.local.MigrationLinks(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("read migration links: %w", err)
	}

	c.log.Info(ctx, "migration started", "user", userID, "entries", len(entries), "linked", len(links))

	for i, e := range entries {
		if _, ok := links[e.ID.Canonical()]; ok {
			res.Skipped++
		} else if err := c.migrateEntry(ctx, userID, e); err != nil {
			res.EntriesFailed++
			c.log.Warn(ctx, "entry not migrated", "id", e.ID, "error", err)
		} else {
			res.EntriesSucceeded++
		}
		if c.progress != nil {
			c.progress(i+1, len(entries))
		}
	}

	prefs, err := c.local.GetPreferences(ctx)
	if err == nil {
		err = c.remote.SetPreferences(ctx, userID, prefs)
	}
	if err != nil {
		c.log.Warn(ctx, "preferences not migrated", "error", err)
	} else {
		res.PreferencesSucceeded = true
	}

	c.log.Info(ctx, "migration finished", "user", userID,
		"succeeded", res.EntriesSucceeded, "failed", res.EntriesFailed,
		"skipped", res.Skipped, "preferences", res.PreferencesSucceeded)
	return res, nil
}

func (c *Coordinator) migrateEntry(ctx context.Context, userID string, e models.Entry) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	remoteID, err := c.remote.AddEntry(ctx, userID, e.Input())
	if err != nil {
		return err
	}
	if err := c.local.LinkMigrated(ctx, userID, e.ID, remoteID); err != nil {
		// The record is on the server; a retry would duplicate it.
		c.log.Warn(ctx, "migration link not saved", "id", e.ID, "remote_id", remoteID, "error", err)
	}
	return nil
}

// ClearLocal removes the migrated data from the device. It refuses unless
// the latest run in this session was clean.
func (c *Coordinator) ClearLocal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Completed || c.last == nil || !c.last.Clean() {
		return ErrMigrationIncomplete
	}
	if err := c.local.ClearMigrated(ctx); err != nil {
		return fmt.Errorf("clear local data: %w", err)
	}
	c.log.Info(ctx, "local data cleared after migration", "user", c.userID)
	return nil
}
