package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/dbx"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/server/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/migrainelog/internal/server/repositories/migraines"
	"github.com/dmitrijs2005/migrainelog/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/migrainelog/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/migrainelog/internal/server/repositories/users"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var testLogger = logging.NewNopLogger()

// --- users ---

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "u-new"
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	consumeOut *models.RefreshToken
	consumeErr error
	createErr  error
	purgeErr   error

	created []models.RefreshToken
	purged  []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, expires time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, models.RefreshToken{UserID: userID, Token: token, Expires: expires})
	return nil
}

func (f *fakeRefreshRepo) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	return f.consumeOut, nil
}

func (f *fakeRefreshRepo) PurgeExpired(ctx context.Context, userID string, now time.Time) (int64, error) {
	f.purged = append(f.purged, userID)
	return 1, f.purgeErr
}

// --- migraines ---

type fakeMigraineRepo struct {
	mu   sync.Mutex
	rows map[string]models.Migraine
	now  time.Time

	listErr   error
	lastLimit int
	lastOrder bool
}

func newFakeMigraineRepo() *fakeMigraineRepo {
	return &fakeMigraineRepo{
		rows: map[string]models.Migraine{},
		now:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeMigraineRepo) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeMigraineRepo) Create(ctx context.Context, m *models.Migraine) (*models.Migraine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := *m
	row.ID = uuid.NewString()
	row.CreatedAt = f.tick()
	row.UpdatedAt = row.CreatedAt
	f.rows[row.ID] = row
	return &row, nil
}

func (f *fakeMigraineRepo) Get(ctx context.Context, id string) (*models.Migraine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &row, nil
}

func (f *fakeMigraineRepo) Update(ctx context.Context, m *models.Migraine) (*models.Migraine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[m.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	row := *m
	row.UpdatedAt = f.tick()
	f.rows[row.ID] = row
	return &row, nil
}

func (f *fakeMigraineRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeMigraineRepo) userRows(userID string) []*models.Migraine {
	out := []*models.Migraine{}
	for _, r := range f.rows {
		if r.UserID == userID {
			row := r
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDateTime.After(out[j].StartDateTime) })
	return out
}

func (f *fakeMigraineRepo) ListByUser(ctx context.Context, userID string, ordered bool, limit int) ([]*models.Migraine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOrder, f.lastLimit = ordered, limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.userRows(userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMigraineRepo) ListInRange(ctx context.Context, userID string, from, to time.Time) ([]*models.Migraine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*models.Migraine{}
	for _, r := range f.userRows(userID) {
		if !r.StartDateTime.Before(from) && !r.StartDateTime.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- profiles ---

type fakeProfileRepo struct {
	prefs map[string]map[string]any
	err   error
}

func (f *fakeProfileRepo) Init(ctx context.Context, p *models.Profile) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.prefs[p.UserID]; ok {
		return false, nil
	}
	f.prefs[p.UserID] = map[string]any{}
	return true, nil
}

func (f *fakeProfileRepo) GetPreferences(ctx context.Context, userID string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.prefs[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) SetPreferences(ctx context.Context, userID string, prefs map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.prefs[userID] = prefs
	return nil
}

// --- catalog ---

type fakeCatalog struct {
	has bool
	err error
}

func (f *fakeCatalog) HasIndex(ctx context.Context, name string) (bool, error) {
	if name != OrderedListIndex {
		return false, errors.New("unexpected index " + name)
	}
	return f.has, f.err
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	m *fakeMigraineRepo
	p *fakeProfileRepo
	c *fakeCatalog
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{},
		r: &fakeRefreshRepo{},
		m: newFakeMigraineRepo(),
		p: &fakeProfileRepo{prefs: map[string]map[string]any{}},
		c: &fakeCatalog{has: true},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Migraines(db dbx.DBTX) migraines.Repository         { return m.m }
func (m *fakeRepoManager) Profiles(db dbx.DBTX) profiles.Repository           { return m.p }
func (m *fakeRepoManager) Catalog(db dbx.DBTX) catalog.Repository             { return m.c }
