// Package postgres provides a PostgreSQL-backed implementation of the storage.Store interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/storage"
	"github.com/mmynk/settlewise/internal/storage/sqlstore"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on a pgx connection pool.
type Store struct {
	*sqlstore.Store
	pool *pgxpool.Pool
}

// New connects to the database at dsn and runs migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	return &Store{Store: sqlstore.New(db, dialect{}), pool: pool}, nil
}

// Close closes the database handle and the pool behind it.
func (s *Store) Close() error {
	err := s.Store.Close()
	s.pool.Close()
	return err
}

// dialect adapts sqlstore to PostgreSQL.
type dialect struct{}

func (dialect) Rebind(query string) string {
	return sqlstore.DollarRebind(query)
}

// LockGroup takes a transaction-scoped advisory lock keyed by the group ID.
func (dialect) LockGroup(ctx context.Context, tx *sql.Tx, groupID string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", groupID)
	return err
}

func (dialect) MapError(err error) error {
	var e *pgconn.PgError
	if !errors.As(err, &e) {
		return err
	}
	switch e.Code {
	case pgerrcode.UniqueViolation:
		return &errs.Error{Kind: errs.KindConflict, Message: "duplicate record", Err: err}
	case pgerrcode.ForeignKeyViolation:
		return &errs.Error{Kind: errs.KindValidation, Message: "referenced record does not exist", Err: err}
	case pgerrcode.CheckViolation:
		return &errs.Error{Kind: errs.KindValidation, Message: "amount must be positive", Err: err}
	}
	return err
}
