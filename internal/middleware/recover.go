package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/arjenou/5000React/internal/transport"
)

// Recover turns a panic into a JSON 500 response.
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logFor(log, r).Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				transport.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
