package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Middleware(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(3, time.Hour, AuthRateLimitMessage)
	limiter.now = clock.Now

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip + ":50000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		w := call("203.0.113.7")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("RateLimit-Limit"))
	}

	clock.Advance(10 * time.Minute)
	w := call("203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3000", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))
	assert.Contains(t, decodeBody(t, w)["error"], "Too many login attempts")

	assert.Equal(t, http.StatusOK, call("198.51.100.1").Code, "limits are per IP")

	clock.Advance(50 * time.Minute)
	assert.Equal(t, http.StatusOK, call("203.0.113.7").Code, "window slid past the first hits")
}

func TestRateLimiter_KeysOnHostOnly(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour, "")
	limiter.now = newFakeClock().Now

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(remoteAddr, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/clients", nil)
		req.RemoteAddr = remoteAddr
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, serve("10.0.0.1:1000", ""))
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:1001", ""), "new source port, same host")
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:1002", "1.1.1.1"), "forwarded header is not trusted here")
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:1003", "2.2.2.2"))

	assert.Equal(t, http.StatusOK, serve("[2001:db8::7]:1000", ""))
	assert.Equal(t, http.StatusTooManyRequests, serve("[2001:db8::7]:1001", ""))
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0, "")
	assert.Equal(t, 20, limiter.maxHits)
	assert.Equal(t, time.Hour, limiter.window)
	assert.Equal(t, APIRateLimitMessage, limiter.message)
}
