package middleware

import (
	"context"
	"sync"
	"time"
)

// Defaults for the invalid auth limiter: 5 failures per minute per IP.
const (
	DefaultAuthFailureLimit  = 5
	DefaultAuthFailureWindow = time.Minute
)

// InvalidAuthRateLimiter counts failed authentication attempts per IP.
// Only failures are counted, so valid users are never slowed down.
type InvalidAuthRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	limit    int
	window   time.Duration
	now      func() time.Time
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

func NewInvalidAuthRateLimiter(limit int, window time.Duration) *InvalidAuthRateLimiter {
	if limit <= 0 {
		limit = DefaultAuthFailureLimit
	}
	if window <= 0 {
		window = DefaultAuthFailureWindow
	}
	return &InvalidAuthRateLimiter{
		attempts: make(map[string]*attemptInfo),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a failed attempt for ip and reports whether it is still under the limit.
func (r *InvalidAuthRateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, exists := r.attempts[ip]
	if !exists || now.Sub(info.firstAt) > r.window {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return true
	}

	if info.count >= r.limit {
		return false
	}
	info.count++
	return true
}

// Blocked reports whether ip used up its failures in the current window.
func (r *InvalidAuthRateLimiter) Blocked(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.attempts[ip]
	if !exists || r.now().Sub(info.firstAt) > r.window {
		return false
	}
	return info.count >= r.limit
}

// Run drops expired entries every five minutes until ctx is cancelled.
func (r *InvalidAuthRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *InvalidAuthRateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for ip, info := range r.attempts {
		if now.Sub(info.firstAt) > r.window {
			delete(r.attempts, ip)
		}
	}
}
