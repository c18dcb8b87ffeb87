package markers

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/dbx"
	"github.com/dmitrijs2005/attendkeeper/internal/models"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Mark(ctx context.Context, personKey, personID string, day models.Date) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO markers (person_key, day, person_id, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(person_key, day) DO NOTHING
	`, personKey, string(day), personID, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to set marker[%s/%s]: %w", personKey, day, err)
	}
	return nil
}

func (r *SQLiteRepository) Has(ctx context.Context, personKey string, day models.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM markers WHERE person_key = ? AND day = ?`, personKey, string(day)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to get marker[%s/%s]: %w", personKey, day, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListDay(ctx context.Context, day models.Date) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT person_key FROM markers WHERE day = ? ORDER BY created_at`, string(day))
	if err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan marker row: %w", err)
		}
		result = append(result, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate marker rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, before models.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM markers WHERE day < ?`, string(before))
	if err != nil {
		return 0, fmt.Errorf("failed to purge markers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
