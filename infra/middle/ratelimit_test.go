package middle

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded-for single",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remoteAddr: "10.0.0.1:4321",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for chain uses first",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			remoteAddr: "10.0.0.1:4321",
			want:       "203.0.113.7",
		},
		{
			name:       "real-ip fallback",
			headers:    map[string]string{"X-Real-IP": " 198.51.100.4 "},
			remoteAddr: "10.0.0.1:4321",
			want:       "198.51.100.4",
		},
		{
			name:       "remote addr strips port",
			remoteAddr: "192.0.2.9:55678",
			want:       "192.0.2.9",
		},
		{
			name:       "ipv6 loopback normalized",
			remoteAddr: "[::1]:55678",
			want:       "127.0.0.1",
		},
		{
			name:       "ipv6 brackets trimmed",
			remoteAddr: "[2001:db8::1]:55678",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

func TestAllowEnforcesBurst(t *testing.T) {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(1.0 / 60.0),
		burst:    2,
	}

	assert.True(t, rl.Allow("203.0.113.7"))
	assert.True(t, rl.Allow("203.0.113.7"))
	assert.False(t, rl.Allow("203.0.113.7"))

	// Separate buckets per client
	assert.True(t, rl.Allow("198.51.100.4"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(1.0 / 60.0),
		burst:    1,
	}

	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/callback/stub", nil)
	req.RemoteAddr = "203.0.113.7:4321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}
