// Package sqlstore implements storage.Store on database/sql. The sqlite and
// postgres packages supply a Dialect and a schema; the queries are shared.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Dialect hides the differences between SQL engines.
type Dialect interface {
	// Rebind rewrites the ? placeholders of query for the engine.
	Rebind(query string) string

	// LockGroup takes the group's settlement lock inside tx. The lock is
	// released when tx ends.
	LockGroup(ctx context.Context, tx *sql.Tx, groupID string) error

	// MapError classifies driver errors (unique violations become conflicts).
	// It returns err unchanged when there is nothing to classify.
	MapError(err error) error
}

// Store implements storage.Store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	locks   *storage.GroupLocks
}

// Option configures a Store.
type Option func(*Store)

// WithProcessLocks serializes InGroupTx per group inside this process before
// the transaction begins. Engines without row or advisory locks need it.
func WithProcessLocks() Option {
	return func(s *Store) {
		s.locks = &storage.GroupLocks{}
	}
}

// New wraps db. The schema must already exist.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs rebound queries against a querier.
type conn struct {
	q       querier
	dialect Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.q.ExecContext(ctx, c.dialect.Rebind(query), args...)
	if err != nil {
		return nil, c.dialect.MapError(err)
	}
	return res, nil
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.dialect.Rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.dialect.Rebind(query), args...)
}

func (s *Store) conn() conn {
	return conn{q: s.db, dialect: s.dialect}
}

// txStore is the storage.Tx handed to InGroupTx callbacks.
type txStore struct {
	conn
}

func (t txStore) ListUnpaidShares(ctx context.Context, q storage.ShareQuery) ([]models.UnpaidShare, error) {
	return listUnpaidShares(ctx, t.conn, q)
}

func (t txStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	return insertBill(ctx, t.conn, bill)
}

// InGroupTx runs fn in one transaction holding the group's settlement lock.
func (s *Store) InGroupTx(ctx context.Context, groupID string, fn func(tx storage.Tx) error) error {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to acquire group lock: %w", err)
		}
		defer unlock()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.dialect.LockGroup(ctx, tx, groupID); err != nil {
			return fmt.Errorf("failed to lock group: %w", err)
		}
		return fn(txStore{conn{q: tx, dialect: s.dialect}})
	})
}

// withTx commits if fn succeeds and rolls back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", s.dialect.MapError(err))
	}
	return nil
}

// QuestionRebind leaves ? placeholders as they are.
func QuestionRebind(query string) string {
	return query
}

// DollarRebind rewrites ? placeholders to $1, $2, ...
// Queries in this package never contain a literal question mark.
func DollarRebind(query string) string {
	n := strings.Count(query, "?")
	if n == 0 {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + n*2)
	i := 0
	for _, r := range query {
		if r == '?' {
			i++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(i))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ..." with n placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return "?" + strings.Repeat(", ?", n-1)
}
