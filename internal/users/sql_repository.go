package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arjenou/5000React/internal/db"
)

type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQLRepository(conn *sql.DB, dialect db.Dialect) *SQLRepository {
	return &SQLRepository{db: conn, dialect: dialect}
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (AdminUser, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, email, role, created_at FROM admin_users WHERE id = ?`, id)
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (AdminUser, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, email, role, created_at FROM admin_users WHERE username = ?`, username)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg string) (AdminUser, error) {
	var (
		u         AdminUser
		email     sql.NullString
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &email, &u.Role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AdminUser{}, ErrNotFound
	}
	if err != nil {
		return AdminUser{}, fmt.Errorf("get admin user: %w", err)
	}
	u.Email = email.String
	if t, err := db.ParseTime(createdAt); err == nil {
		u.CreatedAt = t
	}
	return u, nil
}

func (r *SQLRepository) Create(ctx context.Context, u AdminUser) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	var email interface{}
	if u.Email != "" {
		email = u.Email
	}
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO admin_users (id, username, password_hash, email, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.PasswordHash, email, u.Role, db.FormatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}
