package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/client/archive"
	"github.com/dmitrijs2005/migrainelog/internal/client/client"
	"github.com/dmitrijs2005/migrainelog/internal/client/config"
	"github.com/dmitrijs2005/migrainelog/internal/client/data"
	"github.com/dmitrijs2005/migrainelog/internal/client/identity"
	"github.com/dmitrijs2005/migrainelog/internal/client/local"
	"github.com/dmitrijs2005/migrainelog/internal/client/migration"
	"github.com/dmitrijs2005/migrainelog/internal/client/remote"
	"github.com/dmitrijs2005/migrainelog/internal/filex"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// signedOut stands in for the identity provider in local mode.
type signedOut struct{}

func (signedOut) CurrentUser() *identity.User { return nil }

// App holds every component the REPL commands use. In local mode ident,
// remote, migrator and archive are nil.
type App struct {
	config *config.Config
	log    logging.Logger
	Mode   Mode

	local    *local.Store
	facade   *data.Facade
	ident    *identity.Provider
	remote   *remote.Store
	migrator *migration.Coordinator
	archive  *archive.Archive

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
	loc    *time.Location

	closers []func() error
}

// NewApp opens the local journal and, when remote mode is fully
// configured, connects to the server.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if c.DBPath != ":memory:" {
		if err := filex.EnsureParentDir(c.DBPath); err != nil {
			return nil, err
		}
	}

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DBPath, "error", err)
		return nil, err
	}

	ls := local.New(db, log, local.WithCapacity(c.LocalCapacity))
	if err := ls.Initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config: c,
		log:    log,
		Mode:   ModeLocal,
		local:  ls,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		now:    time.Now,
		loc:    time.Local,
	}
	a.closers = append(a.closers, db.Close)

	if !c.RemoteEnabled() {
		if c.UseRemote {
			log.Warn(ctx, "remote mode requested but connection settings are incomplete, staying local")
		}
		a.facade = data.NewFacade(ls, nil, signedOut{}, log)
		return a, nil
	}

	api, err := client.NewGRPCClient(client.Options{
		EndpointURL: c.ServerEndpointAddr,
		APIKey:      c.APIKey,
		ProjectID:   c.ProjectID,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.closers = append(a.closers, api.Close)

	a.wireRemote(api, &http.Client{Timeout: 30 * time.Second})
	return a, nil
}

// remoteAPI is everything the remote components need from the server
// connection.
type remoteAPI interface {
	remote.Client
	identity.AuthClient
	archive.Presigner
}

func (a *App) wireRemote(api remoteAPI, httpClient *http.Client) {
	a.Mode = ModeRemote
	a.remote = remote.New(api, a.log)
	a.ident = identity.NewProvider(api, a.log)
	a.archive = archive.New(api, httpClient, a.log)

	opts := []migration.Option{migration.WithProgress(func(done, total int) {
		a.printf("\r  copied %d/%d", done, total)
		if done == total {
			a.printf("\n")
		}
	})}
	if a.config != nil {
		opts = append(opts, migration.WithRate(a.config.MigrationLimit(), 1))
	}
	a.migrator = migration.New(a.local, a.remote, a.log, opts...)

	a.facade = data.NewFacade(a.local, a.remote, a.ident, a.log)
	a.facade.SetMode(true)

	a.ident.OnAuthStateChange(func(u *identity.User) {
		if u == nil {
			a.migrator.Reset()
		}
	})
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

func (a *App) remoteEnabled() bool {
	return a.Mode == ModeRemote
}

func (a *App) getStatus() string {
	if a.Mode != ModeRemote {
		return fmt.Sprintf("(%s)", a.Mode)
	}
	if u := a.ident.CurrentUser(); u != nil {
		return fmt.Sprintf("(%s %s)", u.Username, a.Mode)
	}
	return fmt.Sprintf("(signed out %s)", a.Mode)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Run unlocks the journal and runs the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.printf("Migraine journal (%s mode). Type 'help' for commands.\n", a.Mode)
	if err := a.Unlock(ctx); err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	if a.Mode == ModeRemote {
		a.printf("Sign in with 'signin' or create an account with 'signup'.\n")
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
