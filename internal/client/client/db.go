package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/client/migrations"
	"github.com/pressly/goose/v3"
)

var gooseUpContext = goose.UpContext

// RunMigrations applies the embedded local schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return gooseUpContext(ctx, db, ".")
}

// InitDatabase opens the journal database at dsn and migrates it. The pool is
// pinned to one connection: per-connection pragmas such as max_page_count and
// ":memory:" databases both depend on it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
