// Package data routes journal reads and writes to exactly one backend.
//
// In local mode every call goes to the on-device store. In remote mode
// every call goes to the hosted store, scoped to the signed-in user; with
// nobody signed in, reads come back empty and everything else fails with
// common.ErrNotAuthenticated. There is no fallback from one backend to the
// other.
package data

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/client/identity"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
)

type LocalBackend interface {
	ListEntries(ctx context.Context) ([]models.Entry, error)
	GetEntry(ctx context.Context, id models.ID) (models.Entry, error)
	SaveEntry(ctx context.Context, e models.Entry) (models.Entry, error)
	DeleteEntry(ctx context.Context, id models.ID) error
	GetPreferences(ctx context.Context) (models.Preferences, error)
	SavePreferences(ctx context.Context, prefs models.Preferences) error
}

type RemoteBackend interface {
	AddEntry(ctx context.Context, userID string, in models.EntryInput) (models.ID, error)
	UpdateEntry(ctx context.Context, id models.ID, patch models.EntryPatch) error
	DeleteEntry(ctx context.Context, id models.ID) error
	GetEntry(ctx context.Context, id models.ID) (models.Entry, error)
	ListEntriesForUser(ctx context.Context, userID string, limit int) []models.Entry
	ListEntriesInRange(ctx context.Context, userID string, from, to time.Time) []models.Entry
	GetPreferences(ctx context.Context, userID string) models.Preferences
	SetPreferences(ctx context.Context, userID string, prefs models.Preferences) error
}

// Identity reports the signed-in user, or nil.
type Identity interface {
	CurrentUser() *identity.User
}

type Facade struct {
	local  LocalBackend
	remote RemoteBackend
	ident  Identity
	log    logging.Logger
	now    func() time.Time

	useRemote atomic.Bool
}

func NewFacade(local LocalBackend, remote RemoteBackend, ident Identity, log logging.Logger) *Facade {
	return &Facade{
		local:  local,
		remote: remote,
		ident:  ident,
		log:    log.With("module", "facade"),
		now:    time.Now,
	}
}

// SetMode selects the backend. It is meant to be called once at startup.
func (f *Facade) SetMode(useRemote bool) {
	f.useRemote.Store(useRemote)
}

func (f *Facade) RemoteMode() bool {
	return f.useRemote.Load()
}

// route reports which backend serves the call. In remote mode userID is
// empty when nobody is signed in.
func (f *Facade) route() (remote bool, userID string) {
	if !f.useRemote.Load() {
		return false, ""
	}
	if u := f.ident.CurrentUser(); u != nil {
		return true, u.ID
	}
	return true, ""
}

// List returns every entry, newest first.
func (f *Facade) List(ctx context.Context) ([]models.Entry, error) {
	remote, userID := f.route()
	if remote {
		if userID == "" {
			return []models.Entry{}, nil
		}
		return f.remote.ListEntriesForUser(ctx, userID, 0), nil
	}

	entries, err := f.local.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	entries = slices.Clone(entries)
	models.SortByStartDesc(entries)
	return entries, nil
}

// Add validates in and stores it as a new entry.
func (f *Facade) Add(ctx context.Context, in models.EntryInput) (models.ID, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return "", err
	}

	remote, userID := f.route()
	if remote {
		if userID == "" {
			return "", common.ErrNotAuthenticated
		}
		return f.remote.AddEntry(ctx, userID, in)
	}

	saved, err := f.local.SaveEntry(ctx, models.Entry{EntryInput: in})
	if err != nil {
		return "", err
	}
	return saved.ID, nil
}

// Update replaces the editable fields of an existing entry.
func (f *Facade) Update(ctx context.Context, id models.ID, in models.EntryInput) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	remote, userID := f.route()
	if remote {
		if userID == "" {
			return common.ErrNotAuthenticated
		}
		return f.remote.UpdateEntry(ctx, id, models.PatchFromInput(in))
	}

	current, err := f.local.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	current.EntryInput = in
	_, err = f.local.SaveEntry(ctx, current)
	return err
}

func (f *Facade) Delete(ctx context.Context, id models.ID) error {
	remote, userID := f.route()
	if remote {
		if userID == "" {
			return common.ErrNotAuthenticated
		}
		return f.remote.DeleteEntry(ctx, id)
	}
	return f.local.DeleteEntry(ctx, id)
}

// GetByID fails with common.ErrorNotFound for unknown ids.
func (f *Facade) GetByID(ctx context.Context, id models.ID) (models.Entry, error) {
	remote, userID := f.route()
	if remote {
		if userID == "" {
			return models.Entry{}, common.ErrNotAuthenticated
		}
		return f.remote.GetEntry(ctx, id)
	}
	return f.local.GetEntry(ctx, id)
}

// ListInRange returns entries starting within [from, to], newest first.
func (f *Facade) ListInRange(ctx context.Context, from, to time.Time) ([]models.Entry, error) {
	remote, userID := f.route()
	if remote {
		if userID == "" {
			return []models.Entry{}, nil
		}
		return f.remote.ListEntriesInRange(ctx, userID, from, to), nil
	}

	entries, err := f.local.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.InRange(from, to) {
			out = append(out, e)
		}
	}
	models.SortByStartDesc(out)
	return out, nil
}

func (f *Facade) GetPreferences(ctx context.Context) (models.Preferences, error) {
	remote, userID := f.route()
	if remote {
		if userID == "" {
			return models.Preferences{}, nil
		}
		return f.remote.GetPreferences(ctx, userID), nil
	}
	return f.local.GetPreferences(ctx)
}

func (f *Facade) SetPreferences(ctx context.Context, prefs models.Preferences) error {
	remote, userID := f.route()
	if remote {
		if userID == "" {
			return common.ErrNotAuthenticated
		}
		return f.remote.SetPreferences(ctx, userID, prefs)
	}
	return f.local.SavePreferences(ctx, prefs)
}

// Export serializes the active backend's entries and preferences into a
// version-tagged bundle.
func (f *Facade) Export(ctx context.Context) ([]byte, error) {
	if remote, userID := f.route(); remote && userID == "" {
		return nil, common.ErrNotAuthenticated
	}

	prefs, err := f.GetPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("export preferences: %w", err)
	}
	entries, err := f.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export entries: %w", err)
	}
	return models.NewBundle(entries, prefs, f.now()).Marshal()
}

// ImportResult tallies an Import run.
type ImportResult struct {
	EntriesSucceeded     int
	EntriesFailed        int
	PreferencesSucceeded bool
}

// Import replays every entry of the bundle through Add, then writes its
// preferences once. A failing record is counted and skipped. A malformed
// bundle is rejected before anything is written.
func (f *Facade) Import(ctx context.Context, data []byte) (ImportResult, error) {
	var res ImportResult

	b, err := models.ParseBundle(data)
	if err != nil {
		return res, err
	}
	if remote, userID := f.route(); remote && userID == "" {
		return res, common.ErrNotAuthenticated
	}

	for _, e := range b.Entries {
		if _, err := f.Add(ctx, e.Input()); err != nil {
			res.EntriesFailed++
			f.log.Warn(ctx, "import: entry rejected", "id", e.ID, "error", err)
			continue
		}
		res.EntriesSucceeded++
	}

	if err := f.SetPreferences(ctx, b.Preferences); err != nil {
		f.log.Warn(ctx, "import: preferences rejected", "error", err)
	} else {
		res.PreferencesSucceeded = true
	}

	f.log.Info(ctx, "import finished",
		"succeeded", res.EntriesSucceeded, "failed", res.EntriesFailed, "preferences", res.PreferencesSucceeded)
	return res, nil
}
