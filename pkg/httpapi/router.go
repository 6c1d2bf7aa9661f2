package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/credit-saga/pkg/config"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/pkg/metrics"
)

// ReadinessChecker возвращает nil, если зависимости сервиса доступны.
type ReadinessChecker func(ctx context.Context) error

// EngineConfig - параметры gin engine сервиса.
type EngineConfig struct {
	Service        string
	RateLimiter    *RateLimiter // nil - без ограничения
	ReadinessCheck ReadinessChecker
	Debug          bool
}

// NewEngine создаёт gin engine с общими middleware и /healthz, /readyz.
// Маршруты сервиса регистрируются вызывающим.
func NewEngine(cfg EngineConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(SecurityHeaders())
	engine.Use(otelgin.Middleware(cfg.Service))
	engine.Use(metrics.GinMetricsMiddleware(cfg.Service))
	engine.Use(RequestIDs())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if cfg.ReadinessCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			if err := cfg.ReadinessCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.RateLimiter != nil {
		engine.Use(cfg.RateLimiter.Handle())
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "маршрут не найден"})
	})

	return engine
}

// Server - HTTP сервер сервиса.
type Server struct {
	srv *http.Server
}

// NewServer создаёт HTTP сервер по конфигурации.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}}
}

// Start блокирует до остановки сервера.
func (s *Server) Start() error {
	logger.Info().Str("addr", s.srv.Addr).Msg("HTTP сервер запущен")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения текущих запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
