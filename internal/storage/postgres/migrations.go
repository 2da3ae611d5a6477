package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations set up the schema, one statement each. Amounts are NUMERIC(14,2).
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		role TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		deleted_at BIGINT,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		total_amount NUMERIC(14,2) NOT NULL CHECK (total_amount > 0),
		split_policy TEXT NOT NULL,
		payer_id TEXT NOT NULL REFERENCES users(id),
		creator_id TEXT NOT NULL REFERENCES users(id),
		is_settlement BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL DEFAULT 0,
		updated_by TEXT NOT NULL DEFAULT '',
		deleted_at BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS bill_shares (
		id TEXT PRIMARY KEY,
		bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		position INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL DEFAULT 0,
		deleted_at BIGINT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bill_shares_active_user
		ON bill_shares(bill_id, user_id) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_bill_shares_user_id ON bill_shares(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_group_id ON bills(group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_payer_id ON bills(payer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id)`,
}

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
