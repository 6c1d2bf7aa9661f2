// Package metrics - Prometheus метрики сервисов и HTTP сервер /metrics, /healthz, /readyz.
//
// Использование:
//
//	srv := metrics.NewServer(cfg.Metrics.Addr(), "customer", metrics.WithReadinessCheck(check))
//	go srv.Start()
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/credit-saga/pkg/logger"
)

// =============================================================================
// Метрики
// =============================================================================

var (
	// RequestsTotal - HTTP запросы: requests_total{service="order", method="/orders/:id", status="success"}.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Общее количество запросов по сервису, методу и статусу",
		},
		[]string{"service", "method", "status"},
	)

	// RequestDuration - latency HTTP запросов.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Время выполнения запроса в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)

	// OutboxPublishedTotal - результаты отправки записей outbox (status: success / error).
	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Количество попыток отправки записей outbox по результату",
		},
		[]string{"service", "status"},
	)

	// OutboxSweepDuration - длительность одного прохода публикатора outbox.
	OutboxSweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbox_sweep_duration_seconds",
			Help:    "Длительность прохода публикатора outbox в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service"},
	)

	// EventsConsumedTotal - обработанные входящие события по очереди и результату.
	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Количество обработанных входящих событий",
		},
		[]string{"service", "queue", "status"},
	)
)

// =============================================================================
// HTTP Server для /metrics
// =============================================================================

// ReadinessChecker возвращает nil, если сервис готов принимать трафик.
type ReadinessChecker func(ctx context.Context) error

// Server отдаёт /metrics, /healthz и /readyz на отдельном порту.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option настраивает Server.
type Option func(*Server)

// WithReadinessCheck подключает проверку зависимостей к /readyz.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт metrics server на addr (например ":9090").
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{service: service}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "alive")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ready(r.Context()); err != nil {
			// детали ошибки наружу не отдаём
			logger.Warn().Err(err).Str("service", service).Msg("Сервис не готов")
			writeStatus(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Ready выполняет проверку готовности с таймаутом 5 секунд.
// Без проверки сервис считается готовым.
func (s *Server) Ready(ctx context.Context) error {
	if s.readinessCheck == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.readinessCheck(ctx)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
}

// Handler возвращает обработчик сервера (используется в тестах).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start блокирует до остановки сервера.
func (s *Server) Start() error {
	logger.Info().Str("service", s.service).Str("addr", s.httpServer.Addr).Msg("Запуск Metrics Server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// =============================================================================
// Запись метрик
// =============================================================================

// RecordRequest записывает метрики HTTP запроса. status - "success" или "error".
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordOutboxPublish учитывает одну попытку отправки записи outbox.
func RecordOutboxPublish(service string, err error) {
	OutboxPublishedTotal.WithLabelValues(service, statusOf(err)).Inc()
}

// ObserveOutboxSweep записывает длительность прохода публикатора.
func ObserveOutboxSweep(service string, duration time.Duration) {
	OutboxSweepDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordEventConsumed учитывает обработку входящего события.
func RecordEventConsumed(service, queue string, err error) {
	EventsConsumedTotal.WithLabelValues(service, queue, statusOf(err)).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// GinMetricsMiddleware записывает requests_total и request_duration_seconds
// по шаблону маршрута.
func GinMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordRequest(service, route, status, time.Since(start))
	}
}
