// Package catalog answers questions about the database schema itself.
package catalog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/dbx"
)

type Repository interface {
	HasIndex(ctx context.Context, name string) (bool, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// HasIndex looks name up in pg_indexes for the current schema.
func (r *PostgresRepository) HasIndex(ctx context.Context, name string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = current_schema() AND indexname = $1
		)
	`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
