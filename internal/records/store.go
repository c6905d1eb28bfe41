package records

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/dbx"
	"github.com/dmitrijs2005/vstore/internal/records/migrations"
)

// Dialect selects the SQL flavour of a Store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFromDSN treats postgres URLs and key=value connection strings as
// PostgreSQL and anything else as a SQLite path or URI.
func DialectFromDSN(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres
	case strings.Contains(lower, "host=") && strings.Contains(lower, "dbname="):
		return DialectPostgres
	default:
		return DialectSQLite
	}
}

// Store owns the database handle and vends dialect-specific repositories.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: empty database DSN", common.ErrInvalidInput)
	}
	dialect := DialectFromDSN(dsn)
	driver := "pgx"
	if dialect == DialectSQLite {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}
	return NewStore(db, dialect), nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Repository binds the dialect's repository to db (*sql.DB or *sql.Tx).
func (s *Store) Repository(db dbx.DBTX) Repository {
	if s.dialect == DialectPostgres {
		return NewPostgresRepository(db)
	}
	return NewSQLiteRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema for the store's dialect.
func (s *Store) RunMigrations(ctx context.Context) error {
	dir, gooseDialect := migrations.PostgresDir, "pgx"
	if s.dialect == DialectSQLite {
		dir, gooseDialect = migrations.SQLiteDir, "sqlite3"
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, s.db, dir)
}

// Create inserts a record with a generated id.
func (s *Store) Create(ctx context.Context, typeName string) (*Owner, error) {
	return s.CreateWithID(ctx, typeName, uuid.NewString())
}

func (s *Store) CreateWithID(ctx context.Context, typeName, id string) (*Owner, error) {
	if typeName == "" || id == "" {
		return nil, fmt.Errorf("%w: record type and id are required", common.ErrInvalidInput)
	}
	repo := s.Repository(s.db)
	if err := repo.Create(ctx, typeName, id); err != nil {
		return nil, err
	}
	return NewOwner(repo, typeName, id), nil
}

// Find loads an existing record.
func (s *Store) Find(ctx context.Context, typeName, id string) (*Owner, error) {
	repo := s.Repository(s.db)
	ok, err := repo.Exists(ctx, typeName, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: record %s/%s", common.ErrNotFound, typeName, id)
	}
	return NewOwner(repo, typeName, id), nil
}

func (s *Store) ListIDs(ctx context.Context, typeName string) ([]string, error) {
	return s.Repository(s.db).ListIDs(ctx, typeName)
}

func (s *Store) Delete(ctx context.Context, typeName, id string) error {
	return s.Repository(s.db).Delete(ctx, typeName, id)
}

// WithLockedOwner runs fn with exclusive access to the record. Field
// updates made through the owner commit when fn returns nil and roll back
// otherwise; files already written to storage are not rolled back.
func (s *Store) WithLockedOwner(ctx context.Context, typeName, id string, fn func(ctx context.Context, owner *Owner) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repository(tx)
		if err := repo.Lock(ctx, typeName, id); err != nil {
			return err
		}
		return fn(ctx, NewOwner(repo, typeName, id))
	})
}
