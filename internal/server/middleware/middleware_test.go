package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/kanban/internal/auth"
	"github.com/gosuda/kanban/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { //nolint:gochecknoglobals // test fixture
	w.WriteHeader(http.StatusOK)
})

// contextHandler captures the subject set by middleware.
type contextHandler struct {
	subject string
	called  bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.subject, _ = middleware.SubjectFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func withSubject(r *http.Request, subject string) *http.Request {
	return r.WithContext(middleware.WithSubject(r.Context(), subject))
}

func issue(t *testing.T, secret, clientID string, ttl time.Duration) string {
	t.Helper()

	tok, err := auth.IssueToken(secret, clientID, ttl)
	require.NoError(t, err)
	return tok
}

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestSubjectFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ctx    context.Context
		want   string
		wantOK bool
	}{
		{"present", middleware.WithSubject(context.Background(), "cli-1"), "cli-1", true},
		{"absent", context.Background(), "", false},
		{"empty", middleware.WithSubject(context.Background(), ""), "", false},
		{"wrong type", context.WithValue(context.Background(), middleware.ContextKeySubject, 42), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := middleware.SubjectFromContext(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ===========================================================================
// 2. RateLimit middleware
// ===========================================================================

func TestRateLimit_NoSubject_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	// Very low rate (effectively zero refill during the test) with burst of 2.
	handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)

	for i := range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withSubject(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "cli-1"))
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSubject(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "cli-1"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimit_IndependentPerSubject(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, withSubject(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "a"))
	require.Equal(t, http.StatusOK, recA.Code)

	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, withSubject(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "a"))
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, withSubject(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "b"))
	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	req := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		r.RemoteAddr = addr
		return r
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req("10.0.0.1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req("10.0.0.2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ===========================================================================
// 3. Auth middleware
// ===========================================================================

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	token := issue(t, testJWTSecret, "cli-laptop", 15*time.Minute)

	capture := &contextHandler{}
	handler := middleware.Auth(testJWTSecret)(capture)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.True(t, capture.called, "inner handler must be called")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cli-laptop", capture.subject)
}

func TestAuth_QueryToken(t *testing.T) {
	t.Parallel()

	token := issue(t, testJWTSecret, "browser", 15*time.Minute)

	capture := &contextHandler{}
	handler := middleware.Auth(testJWTSecret)(capture)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rpc?access_token="+token, http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "browser", capture.subject)
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage token", "Bearer totally.invalid.token"},
		{"expired token", "Bearer " + issue(t, testJWTSecret, "cli", -1*time.Second)},
		{"wrong secret", "Bearer " + issue(t, "correct-secret", "cli", 15*time.Minute)},
		{"basic scheme", "Basic " + issue(t, testJWTSecret, "cli", 15*time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			capture := &contextHandler{}
			handler := middleware.Auth(testJWTSecret)(capture)

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.False(t, capture.called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "Unauthorized")
		})
	}
}

func TestAuth_BearerFormat(t *testing.T) {
	t.Parallel()

	token := issue(t, testJWTSecret, "cli", 15*time.Minute)

	for _, scheme := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(scheme, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", scheme+token)
			rec := httptest.NewRecorder()

			middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

// ===========================================================================
// 4. Request log
// ===========================================================================

func TestRequestLog_PassesResponseThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RequestLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
