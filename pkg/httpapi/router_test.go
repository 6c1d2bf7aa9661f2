package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_Probes(t *testing.T) {
	tests := []struct {
		name       string
		check      ReadinessChecker
		wantStatus int
	}{
		{name: "готов", check: func(context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "не готов", check: func(context.Context) error { return errors.New("redis down") }, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(EngineConfig{Service: "test", ReadinessCheck: tt.check})

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.wantStatus, w.Code)

			w = httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRequestIDs(t *testing.T) {
	engine := NewEngine(EngineConfig{Service: "test"})
	engine.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	t.Run("заголовок передан", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderTraceID, "trace-1")
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		assert.Equal(t, "trace-1", w.Header().Get(HeaderTraceID))
		assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
	})

	t.Run("заголовка нет - генерируется", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Len(t, w.Header().Get(HeaderTraceID), 36)
	})
}

func TestNewEngine_NoRoute(t *testing.T) {
	engine := NewEngine(EngineConfig{Service: "test"})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"маршрут не найден"}`, w.Body.String())
}

// =====================================
// Rate limiting
// =====================================

func setupRateLimitedEngine(t *testing.T, limit int) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine := NewEngine(EngineConfig{
		Service:     "test",
		RateLimiter: NewRateLimiter(RateLimitConfig{Redis: rdb, Service: "test", Limit: limit, Window: time.Minute}),
	})
	engine.GET("/customers", func(c *gin.Context) {
		c.JSON(http.StatusOK, []string{})
	})
	return engine, mr
}

func doFrom(engine *gin.Engine, ip, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BlocksExcessRequests(t *testing.T) {
	engine, _ := setupRateLimitedEngine(t, 3)

	for i := 0; i < 3; i++ {
		w := doFrom(engine, "10.0.0.1", "/customers")
		assert.Equal(t, http.StatusOK, w.Code, "запрос %d должен пройти", i+1)
	}

	w := doFrom(engine, "10.0.0.1", "/customers")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	w = doFrom(engine, "10.0.0.2", "/customers")
	assert.Equal(t, http.StatusOK, w.Code, "лимит считается по IP")
}

func TestRateLimiter_ProbesNotLimited(t *testing.T) {
	engine, _ := setupRateLimitedEngine(t, 1)

	for i := 0; i < 3; i++ {
		w := doFrom(engine, "10.0.0.3", "/healthz")
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_FailOpen(t *testing.T) {
	engine, mr := setupRateLimitedEngine(t, 1)
	mr.Close()

	w := doFrom(engine, "10.0.0.4", "/customers")
	assert.Equal(t, http.StatusOK, w.Code, "при недоступности Redis запрос пропускается")
}
