package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

type stubLimiter struct {
	allow bool
}

func (s stubLimiter) Allow() bool { return s.allow }

func newTestRouter(t *testing.T, opts ...RouterOption) http.Handler {
	t.Helper()
	return NewRouter(NewHandler(false), zaptest.NewLogger(t), opts...)
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t)

	t.Run("root", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from root, got %d", rec.Code)
		}
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from health, got %d", rec.Code)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown path, got %d", rec.Code)
		}
	})
}

func TestRouterRequestID(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated X-Request-ID header")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("expected incoming request ID to be preserved, got %q", got)
	}
}

func TestRouterRateLimit(t *testing.T) {
	router := newTestRouter(t, WithRateLimiter(stubLimiter{allow: false}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 when limiter denies, got %d", rec.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected permissive CORS origin header")
	}
}

func TestTokenBucketLimiter(t *testing.T) {
	limiter := newTokenBucketLimiter(1, 1)
	if !limiter.Allow() {
		t.Fatalf("expected first request within burst to pass")
	}
	if limiter.Allow() {
		t.Fatalf("expected second immediate request to be throttled")
	}
}
