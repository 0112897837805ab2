package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/arjenou/5000React/internal/httpx"
	"github.com/arjenou/5000React/internal/transport"
	"github.com/arjenou/5000React/internal/users"
)

type adminUserKey struct{}

// Authenticator resolves a bearer token to an admin user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (users.AdminUser, error)
}

// AdminAuth requires "Authorization: Bearer <token>" and stores the resolved
// admin in the request context.
func AdminAuth(authn Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httpx.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			user, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				logFor(log, r).Warn("admin auth: rejected token")
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			ctx := context.WithValue(r.Context(), adminUserKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminUserFromContext(ctx context.Context) (users.AdminUser, bool) {
	u, ok := ctx.Value(adminUserKey{}).(users.AdminUser)
	return u, ok
}
