package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/arjenou/5000React/internal/transport"
)

// Timeout bounds the request context by d. A handler that runs past the
// deadline without writing gets a 504 failure envelope.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			ww := wrap(w, r)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if ww.Status() == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				transport.WriteError(ww, http.StatusGatewayTimeout, "request timed out", nil)
			}
		})
	}
}
