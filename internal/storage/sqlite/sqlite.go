// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/storage/sqlstore"
)

// dsnOptions enables foreign keys and WAL, waits on a busy database instead
// of failing, and starts every transaction as a writer.
const dsnOptions = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// New opens the SQLite database at dbPath and returns a ready store.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*sqlstore.Store, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return sqlstore.New(db, dialect{}, sqlstore.WithProcessLocks()), nil
}

// dialect adapts sqlstore to SQLite.
type dialect struct{}

func (dialect) Rebind(query string) string {
	return sqlstore.QuestionRebind(query)
}

// LockGroup is a no-op: transactions begin IMMEDIATE, so SQLite already
// holds the database write lock, and the store serializes groups in process.
func (dialect) LockGroup(context.Context, *sql.Tx, string) error {
	return nil
}

func (dialect) MapError(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return &errs.Error{Kind: errs.KindConflict, Message: "duplicate record", Err: err}
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return &errs.Error{Kind: errs.KindValidation, Message: "referenced record does not exist", Err: err}
	}
	return err
}
