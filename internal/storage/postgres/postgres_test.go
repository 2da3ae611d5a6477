package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/storage"
	"github.com/mmynk/settlewise/internal/storage/storagetest"
)

// testDSNEnv names a throwaway database; its tables are truncated between tests.
const testDSNEnv = "SETTLEWISE_TEST_POSTGRES_DSN"

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	ctx := context.Background()
	store, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	storagetest.Run(t, func(t *testing.T) storage.Store {
		_, err := store.pool.Exec(ctx, "TRUNCATE users, groups, group_members, bills, bill_shares CASCADE")
		require.NoError(t, err)
		return store
	})
}

func TestDialect_MapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, errs.KindConflict},
		{"foreign key violation", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, errs.KindValidation},
		{"check violation", &pgconn.PgError{Code: pgerrcode.CheckViolation}, errs.KindValidation},
		{"other pg error", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, errs.KindInternal},
		{"plain error", errors.New("connection reset"), errs.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dialect{}.MapError(tt.err)
			assert.Equal(t, tt.want, errs.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestDialect_Rebind(t *testing.T) {
	assert.Equal(t, "SELECT 1 FROM users WHERE id = $1 AND email = $2",
		dialect{}.Rebind("SELECT 1 FROM users WHERE id = ? AND email = ?"))
}
