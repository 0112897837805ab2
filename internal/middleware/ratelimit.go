package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/arjenou/5000React/internal/transport"
)

// sweepThreshold is the number of tracked clients above which expired windows
// are pruned on the next call.
const sweepThreshold = 4096

// RateLimiter counts requests per client address in fixed windows. The
// router mounts it on the login route only, so the address is the whole key.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	hits    int
	resetAt time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// take records one hit for addr. When the window is exhausted it reports how
// long the caller has to wait.
func (rl *RateLimiter) take(addr string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.windows) > sweepThreshold {
		rl.sweep(now)
	}

	w := rl.windows[addr]
	if w == nil || !now.Before(w.resetAt) {
		rl.windows[addr] = &window{hits: 1, resetAt: now.Add(rl.window)}
		return 0, true
	}
	if w.hits >= rl.limit {
		return w.resetAt.Sub(now), false
	}
	w.hits++
	return 0, true
}

func (rl *RateLimiter) sweep(now time.Time) {
	for addr, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, addr)
		}
	}
}

// Middleware rejects over-limit callers with 429. chi's RealIP runs earlier in
// the chain, so RemoteAddr already reflects proxy headers.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait, ok := rl.take(remoteHost(r.RemoteAddr))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			transport.WriteError(w, http.StatusTooManyRequests, "too many login attempts, try again later", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
