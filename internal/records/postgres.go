package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, typeName, id string) error {
	query := `INSERT INTO records (type, id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, typeName, id); err != nil {
		return fmt.Errorf("failed to create record %s/%s: %w", typeName, id, err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, typeName, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM records WHERE type=$1 AND id=$2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, typeName, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check record %s/%s: %w", typeName, id, err)
	}
	return ok, nil
}

// Lock takes a row lock held until the surrounding transaction ends.
func (r *PostgresRepository) Lock(ctx context.Context, typeName, id string) error {
	query := `SELECT id FROM records WHERE type=$1 AND id=$2 FOR UPDATE`
	var got string
	err := r.db.QueryRowContext(ctx, query, typeName, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: record %s/%s", common.ErrNotFound, typeName, id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock record %s/%s: %w", typeName, id, err)
	}
	return nil
}

func (r *PostgresRepository) ListIDs(ctx context.Context, typeName string) ([]string, error) {
	query := `SELECT id FROM records WHERE type=$1 ORDER BY created_at, id`
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

func (r *PostgresRepository) Delete(ctx context.Context, typeName, id string) error {
	query := `DELETE FROM records WHERE type=$1 AND id=$2`
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

func (r *PostgresRepository) GetField(ctx context.Context, typeName, id, field string) (string, error) {
	query := `SELECT value FROM record_fields WHERE record_type=$1 AND record_id=$2 AND field=$3`
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

func (r *PostgresRepository) SetField(ctx context.Context, typeName, id, field, value string) error {
	if value == "" {
		query := `DELETE FROM record_fields WHERE record_type=$1 AND record_id=$2 AND field=$3`
		if _, err := r.db.ExecContext(ctx, query, typeName, id, field); err != nil {
			return fmt.Errorf("failed to clear %s/%s.%s: %w", typeName, id, field, err)
		}
		return nil
	}

	query := `
		INSERT INTO record_fields (record_type, record_id, field, value, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (record_type, record_id, field)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, typeName, id, field, value); err != nil {
		return fmt.Errorf("failed to write %s/%s.%s: %w", typeName, id, field, err)
	}
	return nil
}
