package grpc

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/auth"
	srvmodels "github.com/dmitrijs2005/migrainelog/internal/server/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const (
	testSecret = "test-secret"
	testAPIKey = "project-key"
)

// --- fakes ---

type fakeUsers struct {
	registered []string
	regErr     error
	salt       []byte
	pair       *services.TokenPair
	loginErr   error
	refreshErr error
}

func (f *fakeUsers) Register(ctx context.Context, username string, salt, verifier []byte) (*srvmodels.User, error) {
	if f.regErr != nil {
		return nil, f.regErr
	}
	f.registered = append(f.registered, username)
	return &srvmodels.User{ID: "u-" + username, UserName: username}, nil
}

func (f *fakeUsers) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.salt, nil
}

func (f *fakeUsers) Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error) {
	return f.pair, f.loginErr
}

func (f *fakeUsers) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	return f.pair, f.refreshErr
}

type fakeEntries struct {
	mu      sync.Mutex
	entries map[string]models.Entry
	seq     int

	listErr   error
	lastOwner string
	lastFrom  time.Time
	lastTo    time.Time
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{entries: map[string]models.Entry{}}
}

func (f *fakeEntries) Add(ctx context.Context, userID string, in models.EntryInput) (models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Entry{}, err
	}
	f.seq++
	id := models.ID("e" + strconv.Itoa(f.seq))
	e := models.Entry{ID: id, EntryInput: in, UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.entries[id.String()] = e
	f.lastOwner = userID
	return e, nil
}

func (f *fakeEntries) Get(ctx context.Context, userID, id string) (models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return models.Entry{}, common.ErrorNotFound
	}
	if e.UserID != userID {
		return models.Entry{}, common.ErrorPermissionDenied
	}
	return e, nil
}

func (f *fakeEntries) Update(ctx context.Context, userID, id string, patch models.EntryPatch) (models.Entry, error) {
	e, err := f.Get(ctx, userID, id)
	if err != nil {
		return models.Entry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e.EntryInput = patch.Apply(e.EntryInput)
	f.entries[id] = e
	return e, nil
}

func (f *fakeEntries) Delete(ctx context.Context, userID, id string) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	return nil
}

func (f *fakeEntries) List(ctx context.Context, userID string, ordered bool, limit int) ([]models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.Entry{}
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntries) ListInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Entry, error) {
	f.mu.Lock()
	f.lastFrom, f.lastTo = from, to
	f.mu.Unlock()
	return f.List(ctx, userID, true, 0)
}

type fakeProfiles struct {
	prefs map[string]map[string]any
}

func (f *fakeProfiles) InitUser(ctx context.Context, userID, displayName, email string) (bool, error) {
	if _, ok := f.prefs[userID]; ok {
		return false, nil
	}
	f.prefs[userID] = map[string]any{}
	return true, nil
}

func (f *fakeProfiles) GetPreferences(ctx context.Context, userID string) (map[string]any, error) {
	return f.prefs[userID], nil
}

func (f *fakeProfiles) SetPreferences(ctx context.Context, userID string, prefs map[string]any) error {
	f.prefs[userID] = prefs
	return nil
}

type fakeBackups struct{}

func (fakeBackups) Presign(ctx context.Context, userID, name string, upload bool) (string, string, error) {
	key := services.BackupKey(userID, name)
	return key, "https://s3.local/" + key, nil
}

// --- harness ---

type harness struct {
	srv      *GRPCServer
	conn     *grpc.ClientConn
	users    *fakeUsers
	entries  *fakeEntries
	profiles *fakeProfiles
}

func newHarness(t *testing.T, apiKey string) *harness {
	t.Helper()

	h := &harness{
		users:    &fakeUsers{},
		entries:  newFakeEntries(),
		profiles: &fakeProfiles{prefs: map[string]map[string]any{}},
	}
	h.srv = NewGRPCServer("bufnet", logging.NewNopLogger(), Services{
		Users:    h.users,
		Entries:  h.entries,
		Profiles: h.profiles,
		Backups:  fakeBackups{},
	}, testSecret, apiKey)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	h.conn = conn

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return h
}

// as returns a context carrying the api key and, when userID is set, a
// fresh access token for that user.
func as(t *testing.T, userID string) context.Context {
	t.Helper()
	md := metadata.Pairs(common.APIKeyHeaderName, testAPIKey)
	if userID != "" {
		tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		md.Set(common.AccessTokenHeaderName, tok)
	}
	return metadata.NewOutgoingContext(context.Background(), md)
}
