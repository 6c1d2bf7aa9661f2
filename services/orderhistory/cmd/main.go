// OrderHistory Service - история заказов клиента (read-модель в Redis).
// Слушает события Customer и Order Service, своих событий не публикует.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"example.com/credit-saga/pkg/config"
	dbpkg "example.com/credit-saga/pkg/db"
	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/healthcheck"
	"example.com/credit-saga/pkg/httpapi"
	"example.com/credit-saga/pkg/kafka"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/pkg/metrics"
	"example.com/credit-saga/pkg/tracing"
	"example.com/credit-saga/services/orderhistory/internal/consumer"
	"example.com/credit-saga/services/orderhistory/internal/handler"
	"example.com/credit-saga/services/orderhistory/internal/repository"
	"example.com/credit-saga/services/orderhistory/internal/service"
)

const serviceName = "orderhistory"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:   cfg.App.LogLevel,
		Pretty:  cfg.App.LogPretty,
		Service: serviceName,
	})
	log := logger.Logger()

	log.Info().
		Str("env", cfg.App.Env).
		Int("port", cfg.HTTP.Port).
		Msg("Запуск OrderHistory Service")

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName: serviceName,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Jaeger.OTLPEndpoint(),
		Enabled:     cfg.Jaeger.Enabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Redis: хранилище истории ===

	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := dbpkg.ConnectRedis(redisCtx, cfg.Redis)
	redisCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка подключения к Redis")
	}

	var limiter *httpapi.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = httpapi.NewRateLimiter(httpapi.RateLimitConfig{
			Redis:   rdb,
			Service: serviceName,
			Limit:   cfg.RateLimit.RequestsLimit,
			Window:  cfg.RateLimit.Window,
		})
	}

	readinessCheck := healthcheck.Composite(healthcheck.Redis(rdb), healthcheck.Kafka(cfg.Kafka.Brokers))

	var metricsServer *metrics.Server
	var metricsWg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(
			cfg.Metrics.Addr(),
			serviceName,
			metrics.WithReadinessCheck(metrics.ReadinessChecker(readinessCheck)),
		)
		metricsWg.Add(1)
		go func() {
			defer metricsWg.Done()
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// === Kafka ===

	if cfg.Kafka.EnsureTopics {
		if err := kafka.EnsureTopics(cfg.Kafka.Brokers, kafka.DefaultTopics(events.Exchanges()...)); err != nil {
			log.Warn().Err(err).Msg("Не удалось создать топики (возможно Kafka недоступна)")
		}
	}

	kafkaCfg := kafka.Config{Brokers: cfg.Kafka.Brokers, ClientID: serviceName}

	// Producer нужен только для DLQ
	dlqProducer, err := kafka.NewProducer(kafkaCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка создания Kafka Producer")
	}

	historyService := service.NewHistoryService(repository.NewHistoryStore(rdb))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workersWg sync.WaitGroup
	var consumers []*consumer.ProjectionConsumer

	for _, binding := range consumer.Bindings() {
		kc, err := kafka.NewConsumer(kafkaCfg, binding)
		if err != nil {
			log.Fatal().Err(err).Str("queue", binding.Queue).Msg("Ошибка создания Kafka Consumer")
		}
		kc.SetDLQ(dlqProducer)
		kc.SetRetryBackoff(cfg.Consumer.ProjectionRetryBackoff)
		kc.SetRedeliveryDelay(cfg.Consumer.RedeliveryDelay)

		c := consumer.NewProjectionConsumer(kc, historyService, cfg.Consumer.MaxRetries)
		consumers = append(consumers, c)

		workersWg.Add(1)
		go func(queue string) {
			defer workersWg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("worker", queue).Msg("Паника в фоновом воркере")
				}
			}()
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("worker", queue).Msg("Фоновый воркер завершился с ошибкой")
			}
		}(binding.Queue)
	}

	// === HTTP ===

	engine := httpapi.NewEngine(httpapi.EngineConfig{
		Service:        serviceName,
		RateLimiter:    limiter,
		ReadinessCheck: httpapi.ReadinessChecker(readinessCheck),
		Debug:          cfg.IsDevelopment(),
	})
	handler.NewHistoryHandler(historyService).RegisterRoutes(engine)

	httpServer := httpapi.NewServer(cfg.HTTP, engine)
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка остановки HTTP сервера")
	}

	cancel()
	workersWg.Wait()

	for _, c := range consumers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия Kafka Consumer")
		}
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Kafka Producer")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Redis")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
		metricsWg.Wait()
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	log.Info().Msg("OrderHistory Service остановлен")
}
