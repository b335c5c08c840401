package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1:1235"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1:1236"))

	// Another client has its own bucket.
	assert.Equal(t, http.StatusOK, request("10.0.0.2:1234"))
	assert.Equal(t, 2, rl.Count())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	rl.Allow("a")
	rl.cleanup(time.Now())
	assert.Equal(t, 1, rl.Count())

	rl.cleanup(time.Now().Add(time.Hour))
	assert.Equal(t, 0, rl.Count())

	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	request := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, request("3.3.3.3"))
	assert.Equal(t, 1, rl.Count())

	rl.TrustProxy = true
	assert.Equal(t, http.StatusOK, request("4.4.4.4"))
	assert.Equal(t, 2, rl.Count())
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trust   bool
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for behind proxy", true, map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip behind proxy", true, map[string]string{"X-Real-IP": "4.3.2.1"}, "9.9.9.9:1", "4.3.2.1"},
		{"forwarded for untrusted", false, map[string]string{"X-Forwarded-For": "1.2.3.4"}, "9.9.9.9:1", "9.9.9.9"},
		{"real ip untrusted", false, map[string]string{"X-Real-IP": "4.3.2.1"}, "9.9.9.9:1", "9.9.9.9"},
		{"remote addr", true, nil, "9.9.9.9:1", "9.9.9.9"},
		{"remote without port", false, nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req, tt.trust))
		})
	}
}
