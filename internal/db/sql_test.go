package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM projects WHERE slug = ? AND id != ? LIMIT ?"
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, "SELECT id FROM projects WHERE slug = $1 AND id != $2 LIMIT $3", Postgres.Rebind(q))
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2025, 3, 9, 14, 5, 7, 123000000, time.FixedZone("CST", 8*3600))
	s := FormatTime(in)
	assert.Equal(t, "2025-03-09T06:05:07.123Z", s)

	out, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	legacy, err := ParseTime("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 2024, legacy.Year())
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "archfolio.db")

	conn, dialect, err := OpenSQL(ctx, "sqlite", path)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, SQLite, dialect)

	require.NoError(t, Migrate(ctx, conn))
	// idempotent
	require.NoError(t, Migrate(ctx, conn))

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpenSQLUnknownDriver(t *testing.T) {
	_, _, err := OpenSQL(context.Background(), "oracle", "x")
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	conn, _, err := OpenSQL(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY, slug TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO items (id, slug) VALUES ('a', 'one')`)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `INSERT INTO items (id, slug) VALUES ('b', 'one')`)
	assert.True(t, IsUniqueViolation(err))
	_, err = conn.ExecContext(ctx, `INSERT INTO items (id, slug) VALUES ('a', 'two')`)
	assert.True(t, IsUniqueViolation(err))

	_, err = conn.ExecContext(ctx, `INSERT INTO missing (id) VALUES ('x')`)
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err))

	assert.True(t, IsUniqueViolation(fmt.Errorf("update: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("disk full")))
	assert.False(t, IsUniqueViolation(nil))
}
