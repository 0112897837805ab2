package middleware

import (
	"net/http"
	"strconv"
)

const (
	corsMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Requested-With"
	corsMaxAge  = 86400
)

// CORS reflects the request Origin when it is on the allow-list and falls back
// to the first configured origin otherwise. Preflight requests end here.
func CORS(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	fallback := ""
	if len(allowed) > 0 {
		fallback = allowed[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allow := fallback
			if _, ok := set[origin]; ok && origin != "" {
				allow = origin
			}

			h := w.Header()
			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
			}
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
