package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/dbx"
)

// SQLiteRepository implements Repository for modernc.org/sqlite.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, typeName, id string) error {
	query := `INSERT INTO records (type, id) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, typeName, id); err != nil {
		return fmt.Errorf("failed to create record %s/%s: %w", typeName, id, err)
	}
	return nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, typeName, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM records WHERE type=? AND id=?)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, typeName, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check record %s/%s: %w", typeName, id, err)
	}
	return ok, nil
}

// Lock only checks the record exists; SQLite serializes writers per database.
func (r *SQLiteRepository) Lock(ctx context.Context, typeName, id string) error {
	ok, err := r.Exists(ctx, typeName, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: record %s/%s", common.ErrNotFound, typeName, id)
	}
	return nil
}

func (r *SQLiteRepository) ListIDs(ctx context.Context, typeName string) ([]string, error) {
	query := `SELECT id FROM records WHERE type=? ORDER BY created_at, rowid`
	rows, err := r.db.QueryContext(ctx, query, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete removes the record and its fields. Foreign keys are off by default
// in SQLite, so fields are deleted explicitly.
func (r *SQLiteRepository) Delete(ctx context.Context, typeName, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM record_fields WHERE record_type=? AND record_id=?`, typeName, id); err != nil {
		return fmt.Errorf("failed to delete fields of %s/%s: %w", typeName, id, err)
	}
	query := `DELETE FROM records WHERE type=? AND id=?`
	res, err := r.db.ExecContext(ctx, query, typeName, id)
	if err != nil {
		return fmt.Errorf("failed to delete record %s/%s: %w", typeName, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: record %s/%s", common.ErrNotFound, typeName, id)
	}
	return nil
}

func (r *SQLiteRepository) GetField(ctx context.Context, typeName, id, field string) (string, error) {
	query := `SELECT value FROM record_fields WHERE record_type=? AND record_id=? AND field=?`
	var value string
	err := r.db.QueryRowContext(ctx, query, typeName, id, field).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s.%s: %w", typeName, id, field, err)
	}
	return value, nil
}

func (r *SQLiteRepository) SetField(ctx context.Context, typeName, id, field, value string) error {
	if value == "" {
		query := `DELETE FROM record_fields WHERE record_type=? AND record_id=? AND field=?`
		if _, err := r.db.ExecContext(ctx, query, typeName, id, field); err != nil {
			return fmt.Errorf("failed to clear %s/%s.%s: %w", typeName, id, field, err)
		}
		return nil
	}

	query := `
		INSERT INTO record_fields (record_type, record_id, field, value, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(record_type, record_id, field)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, typeName, id, field, value); err != nil {
		return fmt.Errorf("failed to write %s/%s.%s: %w", typeName, id, field, err)
	}
	return nil
}
