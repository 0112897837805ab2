package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// pgUniqueViolation is the SQLSTATE postgres reports for a duplicate key.
const pgUniqueViolation = "23505"

// Dialect captures the few differences between the supported SQL engines.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// TimeLayout keeps timestamps lexically sortable in TEXT columns.
const TimeLayout = "2006-01-02T15:04:05.000Z"

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Rebind rewrites '?' placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint on either engine.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// FormatTime renders t in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout and RFC 3339 values.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// OpenSQL opens the relational store for driver ("sqlite" or "postgres") and
// verifies the connection.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	switch driver {
	case "sqlite":
		conn, err := openSQLite(dsn)
		if err != nil {
			return nil, SQLite, err
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, SQLite, fmt.Errorf("ping sqlite: %w", err)
		}
		return conn, SQLite, nil
	case "postgres":
		conn, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, Postgres, fmt.Errorf("open postgres: %w", err)
		}
		conn.SetMaxOpenConns(10)
		conn.SetConnMaxIdleTime(5 * time.Minute)
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, Postgres, fmt.Errorf("ping postgres: %w", err)
		}
		return conn, Postgres, nil
	default:
		return nil, SQLite, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty database path")
	}

	dsn := "file::memory:?_foreign_keys=ON"
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", path)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	return conn, nil
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Migrate creates the projects and admin_users tables. Column types are kept
// to TEXT/INTEGER/REAL so the same statements run on both dialects.
func Migrate(ctx context.Context, conn *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL DEFAULT '',
            architect TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            area REAL,
            project_year INTEGER NOT NULL DEFAULT 0,
            photographer TEXT,
            details TEXT NOT NULL DEFAULT '',
            images TEXT NOT NULL DEFAULT '[]',
            slug TEXT NOT NULL UNIQUE,
            status TEXT NOT NULL DEFAULT 'draft',
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_projects_status_created ON projects(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_category ON projects(category)`,
		`CREATE TABLE IF NOT EXISTS admin_users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            email TEXT,
            role TEXT NOT NULL DEFAULT 'admin',
            created_at TEXT NOT NULL
        )`,
	}

	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
