package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/wordlens/internal/errors"
)

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	limit      int
	window     time.Duration
	timestamps []time.Time
	lastSeen   time.Time
	mu         sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window}
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.lastSeen = now
	cutoff := now.Add(-r.window)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= r.limit {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

func (r *rateLimiter) idleSince(t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen.Before(t)
}

// ipLimiter applies one sliding window per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    int
	window   time.Duration
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	return &ipLimiter{limiters: make(map[string]*rateLimiter), limit: limit, window: window}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	rl, ok := l.limiters[ip]
	if !ok {
		rl = newRateLimiter(l.limit, l.window)
		l.limiters[ip] = rl
	}
	l.mu.Unlock()
	return rl.allow()
}

// cleanup drops limiters idle for longer than ttl.
func (l *ipLimiter) cleanup(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, rl := range l.limiters {
		if rl.idleSince(cutoff) {
			delete(l.limiters, ip)
			n++
		}
	}
	return n
}

func (l *ipLimiter) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			writeError(w, errors.New(errors.Unavailable, "rate limit exceeded"), http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
