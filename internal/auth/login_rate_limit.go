package auth

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"client-registry/internal/httpx"
)

const (
	AuthRateLimitMessage = "Too many login attempts from this IP, please try again after an hour"
	APIRateLimitMessage  = "Too many requests from this IP, please try again later."
)

// RateLimiter is a per-IP sliding window kept in process memory.
type RateLimiter struct {
	mu        sync.Mutex
	maxHits   int
	window    time.Duration
	message   string
	hitByIP   map[string][]time.Time
	maxMemory int
	now       func() time.Time
}

func NewRateLimiter(maxHits int, window time.Duration, message string) *RateLimiter {
	if maxHits <= 0 {
		maxHits = 20
	}
	if window <= 0 {
		window = time.Hour
	}
	if message == "" {
		message = APIRateLimitMessage
	}

	return &RateLimiter{
		maxHits:   maxHits,
		window:    window,
		message:   message,
		hitByIP:   make(map[string][]time.Time),
		maxMemory: 5000,
		now:       time.Now,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, retryAfter := l.allow(httpx.ClientIP(r), l.now().UTC())

		w.Header().Set("RateLimit-Limit", strconv.Itoa(l.maxHits))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			httpx.WriteError(w, http.StatusTooManyRequests, l.message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(ip string, now time.Time) (bool, int, time.Duration) {
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hitByIP[ip]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= l.maxHits {
		retryAfter := filtered[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.hitByIP[ip] = filtered
		return false, 0, retryAfter
	}

	filtered = append(filtered, now)
	l.hitByIP[ip] = filtered

	if len(l.hitByIP) > l.maxMemory {
		for key, value := range l.hitByIP {
			if len(value) == 0 || !value[len(value)-1].After(threshold) {
				delete(l.hitByIP, key)
			}
		}
	}

	return true, l.maxHits - len(filtered), 0
}
