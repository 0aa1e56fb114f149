package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/client/client"
	"github.com/dmitrijs2005/migrainelog/internal/client/data"
	"github.com/dmitrijs2005/migrainelog/internal/client/local"
	"github.com/dmitrijs2005/migrainelog/internal/client/remote/remotetest"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeServer is the remote API with accounts and a backup bucket bolted on
// to the in-memory document store.
type fakeServer struct {
	*remotetest.Client

	mu        sync.Mutex
	salts     map[string][]byte
	objects   map[string][]byte
	bucketURL string
}

func newFakeServer(t *testing.T) (*fakeServer, *http.Client) {
	t.Helper()
	fs := &fakeServer{
		Client:  remotetest.New(),
		salts:   map[string][]byte{},
		objects: map[string][]byte{},
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.serveBucket))
	t.Cleanup(srv.Close)
	fs.bucketURL = srv.URL
	return fs, srv.Client()
}

func (f *fakeServer) serveBucket(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = b
	case http.MethodGet:
		b, ok := f.objects[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeServer) hasObject(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok
}

func (f *fakeServer) Register(ctx context.Context, userName string, salt []byte, verifier []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.salts[userName]; ok {
		return common.ErrorAlreadyExists
	}
	f.salts[userName] = append([]byte(nil), salt...)
	return nil
}

func (f *fakeServer) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.salts[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (f *fakeServer) Login(ctx context.Context, userName string, verifier []byte) (string, error) {
	return "uid-" + userName, nil
}

func (f *fakeServer) Logout() {}

func (f *fakeServer) PresignBackup(ctx context.Context, userID, name string, upload bool) (string, error) {
	return f.bucketURL + "/users/" + userID + "/backups/" + name + ".json", nil
}

func newLocalStore(t *testing.T) *local.Store {
	t.Helper()
	ctx := context.Background()
	db, err := client.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := local.New(db, logging.NewNopLogger())
	require.NoError(t, s.Initialize(ctx))
	return s
}

// newTestApp builds a local-mode App reading its answers from input.
func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	ls := newLocalStore(t)
	out := &bytes.Buffer{}
	a := &App{
		log:    logging.NewNopLogger(),
		Mode:   ModeLocal,
		local:  ls,
		reader: bufio.NewReader(strings.NewReader(input)),
		out:    out,
		now:    func() time.Time { return testNow },
		loc:    time.UTC,
	}
	a.facade = data.NewFacade(ls, nil, signedOut{}, a.log)
	return a, out
}

// newRemoteTestApp is newTestApp wired to a fake server.
func newRemoteTestApp(t *testing.T, input string) (*App, *bytes.Buffer, *fakeServer) {
	t.Helper()
	a, out := newTestApp(t, input)
	fs, httpClient := newFakeServer(t)
	a.wireRemote(fs, httpClient)
	return a, out, fs
}

// stubSecrets makes getSecret answer with the given values in turn.
func stubSecrets(t *testing.T, values ...string) {
	t.Helper()
	orig := getSecret
	t.Cleanup(func() { getSecret = orig })

	var i int
	getSecret = func(string, io.Writer) ([]byte, error) {
		if i >= len(values) {
			return nil, io.EOF
		}
		v := values[i]
		i++
		return []byte(v), nil
	}
}

func signIn(t *testing.T, a *App, user string) {
	t.Helper()
	stubSecrets(t, "password1", "password1")
	require.NoError(t, a.SignUp(context.Background(), []string{user}))
}
