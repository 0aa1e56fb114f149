package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucket is a minimal object store answering presigned PUT and GET.
type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *bucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = body
	case http.MethodGet:
		obj, ok := b.objects[r.URL.Path]
		if !ok {
			http.Error(w, "NoSuchKey", http.StatusNotFound)
			return
		}
		_, _ = w.Write(obj)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type fakePresigner struct {
	base  string
	err   error
	calls []string
}

func (p *fakePresigner) PresignBackup(ctx context.Context, userID, name string, upload bool) (string, error) {
	op := "get"
	if upload {
		op = "put"
	}
	p.calls = append(p.calls, op+":"+name)
	if p.err != nil {
		return "", p.err
	}
	return p.base + "/users/" + userID + "/backups/" + name + ".json", nil
}

func setup(t *testing.T) (*Archive, *fakePresigner, *bucket) {
	t.Helper()
	b := &bucket{objects: map[string][]byte{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	p := &fakePresigner{base: srv.URL}
	return New(p, srv.Client(), logging.NewNopLogger()), p, b
}

const bundle = `{"version":1,"exportDate":"2024-01-01T00:00:00Z","entries":[],"preferences":{}}`

func TestBackupAndRestore(t *testing.T) {
	a, p, b := setup(t)
	ctx := context.Background()

	require.NoError(t, a.Backup(ctx, "u1", "weekly", []byte(bundle)))
	assert.Equal(t, []byte(bundle), b.objects["/users/u1/backups/weekly.json"])

	got, err := a.Restore(ctx, "u1", "weekly")
	require.NoError(t, err)
	assert.JSONEq(t, bundle, string(got))
	assert.Equal(t, []string{"put:weekly", "get:weekly"}, p.calls)
}

func TestRestoreMissingObject(t *testing.T) {
	a, _, _ := setup(t)

	_, err := a.Restore(context.Background(), "u1", "nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download failed")
}

func TestRestoreRejectsNonBundle(t *testing.T) {
	a, _, b := setup(t)
	b.objects["/users/u1/backups/junk.json"] = []byte(`{"entries":[]}`)

	_, err := a.Restore(context.Background(), "u1", "junk")
	assert.ErrorIs(t, err, common.ErrInvalidBundle)
}

func TestBackupValidation(t *testing.T) {
	a, p, _ := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.Backup(ctx, "u1", "../etc", []byte(bundle)), common.ErrorValidation)
	assert.ErrorIs(t, a.Backup(ctx, "u1", "ok", []byte(`not json`)), common.ErrInvalidBundle)
	assert.Empty(t, p.calls)
}

func TestBackupPresignFailure(t *testing.T) {
	a, p, _ := setup(t)
	p.err = errors.New("denied")

	err := a.Backup(context.Background(), "u1", "weekly", []byte(bundle))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "presign upload")
}

func TestDefaultName(t *testing.T) {
	name := DefaultName(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	assert.Equal(t, "backup-20240506T070809Z", name)
	assert.NoError(t, ValidateName(name))
}
