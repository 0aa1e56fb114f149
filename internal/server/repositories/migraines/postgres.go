package migraines

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/dbx"
	jm "github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/models"
)

const columns = `id, user_id, start_date_time, end_date_time, duration, intensity, location, symptoms, triggers, notes, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMigraine(row rowScanner) (*models.Migraine, error) {
	var (
		m        models.Migraine
		end      sql.NullTime
		duration sql.NullInt64
		location string
		symptoms []byte
		triggers []byte
	)
	err := row.Scan(&m.ID, &m.UserID, &m.StartDateTime, &end, &duration, &m.Intensity,
		&location, &symptoms, &triggers, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		m.EndDateTime = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		m.Duration = &d
	}
	m.Location = jm.Location(location)
	if m.Symptoms, err = decodeSet(symptoms); err != nil {
		return nil, fmt.Errorf("symptoms: %w", err)
	}
	if m.Triggers, err = decodeSet(triggers); err != nil {
		return nil, fmt.Errorf("triggers: %w", err)
	}
	return &m, nil
}

func decodeSet(b []byte) ([]string, error) {
	out := []string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func encodeSet(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullableEnd(end *time.Time) sql.NullTime {
	if end == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *end, Valid: true}
}

func nullableDuration(d *int) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*d), Valid: true}
}

func writeArgs(m *models.Migraine) ([]any, error) {
	symptoms, err := encodeSet(m.Symptoms)
	if err != nil {
		return nil, fmt.Errorf("symptoms: %w", err)
	}
	triggers, err := encodeSet(m.Triggers)
	if err != nil {
		return nil, fmt.Errorf("triggers: %w", err)
	}
	return []any{m.StartDateTime, nullableEnd(m.EndDateTime), nullableDuration(m.Duration),
		m.Intensity, string(m.Location), symptoms, triggers, m.Notes}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Migraine) (*models.Migraine, error) {
	args, err := writeArgs(m)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO migraines (user_id, start_date_time, end_date_time, duration, intensity, location, symptoms, triggers, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + columns

	row := r.db.QueryRowContext(ctx, query, append([]any{m.UserID}, args...)...)
	out, err := scanMigraine(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Migraine, error) {
	query := `SELECT ` + columns + ` FROM migraines WHERE id = $1`

	m, err := scanMigraine(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// Update writes every editable column and bumps updated_at. There is no
// version check: the last writer wins.
func (r *PostgresRepository) Update(ctx context.Context, m *models.Migraine) (*models.Migraine, error) {
	args, err := writeArgs(m)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE migraines
		SET start_date_time = $2, end_date_time = $3, duration = $4, intensity = $5,
		    location = $6, symptoms = $7, triggers = $8, notes = $9, updated_at = now()
		WHERE id = $1
		RETURNING ` + columns

	out, err := scanMigraine(r.db.QueryRowContext(ctx, query, append([]any{m.ID}, args...)...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM migraines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, ordered bool, limit int) ([]*models.Migraine, error) {
	query := `SELECT ` + columns + ` FROM migraines WHERE user_id = $1`
	if ordered {
		query += ` ORDER BY start_date_time DESC`
	}
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) ListInRange(ctx context.Context, userID string, from, to time.Time) ([]*models.Migraine, error) {
	query := `SELECT ` + columns + ` FROM migraines
		WHERE user_id = $1 AND start_date_time >= $2 AND start_date_time <= $3
		ORDER BY start_date_time DESC`
	return r.list(ctx, query, userID, from, to)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Migraine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Migraine{}
	for rows.Next() {
		m, err := scanMigraine(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
