package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter bounds login volume per network origin. This is volume
// control, distinct from the per-account lockout: neither substitutes for
// the other.
type loginLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perSecond rate.Limit
	burst     int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	return &loginLimiter{
		limiters:  make(map[string]*limiterEntry),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
	}
}

func (l *loginLimiter) allow(origin string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[origin]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.limiters[origin] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// prune drops origins idle long enough that their buckets are full again.
func (l *loginLimiter) prune(olderThan time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	for origin, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, origin)
		}
	}
}

// RateLimitMiddleware guards the login endpoint with a per-origin token
// bucket.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(requestOrigin(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
			return
		}
		next(w, r)
	}
}

// requestOrigin normalizes the client address to just the host, not the
// ephemeral port.
func requestOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
