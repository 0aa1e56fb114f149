package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/dbx"
	"github.com/dmitrijs2005/migrainelog/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Init(ctx context.Context, p *models.Profile) (bool, error) {
	query := `
		INSERT INTO profiles (user_id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.DisplayName, p.Email).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) GetPreferences(ctx context.Context, userID string) (map[string]any, error) {
	query := `SELECT preferences FROM profiles WHERE user_id = $1`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	prefs := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &prefs); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	if prefs == nil {
		prefs = map[string]any{}
	}
	return prefs, nil
}

func (r *PostgresRepository) SetPreferences(ctx context.Context, userID string, prefs map[string]any) error {
	if prefs == nil {
		prefs = map[string]any{}
	}
	b, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	query := `
		INSERT INTO profiles (user_id, preferences)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET preferences = EXCLUDED.preferences, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, string(b)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
