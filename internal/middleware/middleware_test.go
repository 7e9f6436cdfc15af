package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type stubAdmins map[string]string

func (s stubAdmins) VerifyAdmin(_ context.Context, token string) (string, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return "", errors.New("unauthorized")
}

func adminRouter(secret string, verifier AdminVerifier) *gin.Engine {
	r := gin.New()
	r.POST("/admin", AdminOnly(secret, verifier), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(AdminIDKey))
	})
	return r
}

func TestAdminOnly(t *testing.T) {
	r := adminRouter("s3cret", stubAdmins{"good": "uid-1"})

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		body    string
	}{
		{"secret", map[string]string{AdminSecretHeader: "s3cret"}, http.StatusOK, "shared-secret"},
		{"firebase", map[string]string{"Authorization": "Bearer good"}, http.StatusOK, "uid-1"},
		{"wrong secret", map[string]string{AdminSecretHeader: "nope"}, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"bad token", map[string]string{"Authorization": "Bearer bad"}, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"malformed header", map[string]string{"Authorization": "good"}, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"nothing", nil, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestAdminOnly_NoSecretConfigured(t *testing.T) {
	r := adminRouter("", nil)
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set(AdminSecretHeader, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestViewerIdentity(t *testing.T) {
	r := gin.New()
	r.Use(ViewerIdentity())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, ViewerID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	issued := w.Body.String()
	require.NoError(t, uuid.Validate(issued))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ViewerCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, issued, w.Body.String())
	assert.Empty(t, w.Result().Cookies(), "known viewers are not reissued")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ViewerCookie, Value: "not-a-uuid"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NoError(t, uuid.Validate(w.Header().Get(RequestIDHeader)))
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(time.Hour, time.Hour)
	defer rl.Close()

	r := gin.New()
	r.Use(RateLimit(rl))
	r.POST("/api/v1/admin/episodes", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/episodes", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < ClassIngest.PerMinute; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/episodes", nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/episodes", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/episodes", nil))
	assert.Equal(t, http.StatusOK, w.Code, "classes have separate budgets")
}

func TestRateLimiter_CleanupDropsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(time.Hour, -time.Second)
	defer rl.Close()

	rl.Allow("10.0.0.1", ClassDefault)
	rl.cleanup()
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	assert.Empty(t, rl.visitors)
}
