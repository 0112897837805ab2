package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/arjenou/5000React/internal/middleware"
	"github.com/arjenou/5000React/internal/users"
	"github.com/arjenou/5000React/internal/validation"
)

// Authenticator issues tokens for admin credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, users.AdminUser, error)
}

// Server holds the gateway-level handlers: health, admin login and verify.
type Server struct {
	Env  string
	Auth Authenticator
	Val  *validation.Validator
	Log  *slog.Logger
	Now  func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}
