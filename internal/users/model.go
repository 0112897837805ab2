package users

import (
	"context"
	"errors"
	"time"
)

const RoleAdmin = "admin"

var ErrNotFound = errors.New("admin user not found")

type AdminUser struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"created_at" json:"-"`
}

// Repository is the persistence surface for admin users. Users are created
// out of band (seed command); the API only reads them.
type Repository interface {
	GetByID(ctx context.Context, id string) (AdminUser, error)
	GetByUsername(ctx context.Context, username string) (AdminUser, error)
	Create(ctx context.Context, user AdminUser) error
}
