// Order Service - заказы и их статусы.
// Слушает ответы Customer Service и переводит заказы между статусами,
// order.created / order.canceled пишет в outbox. Outbox Worker публикует их в Kafka.
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

	"github.com/redis/go-redis/v9"

	"example.com/credit-saga/pkg/circuitbreaker"
	"example.com/credit-saga/pkg/config"
	dbpkg "example.com/credit-saga/pkg/db"
	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/healthcheck"
	"example.com/credit-saga/pkg/httpapi"
	"example.com/credit-saga/pkg/kafka"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/pkg/metrics"
	"example.com/credit-saga/pkg/outbox"
	"example.com/credit-saga/pkg/tracing"
	"example.com/credit-saga/services/order/internal/consumer"
	"example.com/credit-saga/services/order/internal/handler"
	"example.com/credit-saga/services/order/internal/repository"
	"example.com/credit-saga/services/order/internal/service"
)

const serviceName = "order"

func main() {
	// Загружаем конфигурацию
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
		Msg("Запуск Order Service")

	// === Observability: Tracing ===

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName: serviceName,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Jaeger.OTLPEndpoint(),
		Enabled:     cfg.Jaeger.Enabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Подключение к зависимостям ===

	db, err := dbpkg.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка подключения к MySQL")
	}
	if cfg.App.AutoMigrate {
		if err := dbpkg.Migrate(db, repository.Models()...); err != nil {
			log.Fatal().Err(err).Msg("Ошибка миграции")
		}
	}

	checks := []healthcheck.Check{healthcheck.MySQL(db), healthcheck.Kafka(cfg.Kafka.Brokers)}

	// Redis нужен только для rate limiter
	var rdb *redis.Client
	var limiter *httpapi.RateLimiter
	if cfg.RateLimit.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err = dbpkg.ConnectRedis(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Ошибка подключения к Redis")
		}
		limiter = httpapi.NewRateLimiter(httpapi.RateLimitConfig{
			Redis:   rdb,
			Service: serviceName,
			Limit:   cfg.RateLimit.RequestsLimit,
			Window:  cfg.RateLimit.Window,
		})
		checks = append(checks, healthcheck.Redis(rdb))
	}

	readinessCheck := healthcheck.Composite(checks...)

	// === Observability: Metrics ===

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

	kafkaProducer, err := kafka.NewProducer(kafkaCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка создания Kafka Producer")
	}

	// === Бизнес-логика ===

	orderRepo := repository.NewOrderRepository(db)
	orderService := service.NewOrderService(orderRepo, repository.NewUnitOfWork(db))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workersWg sync.WaitGroup

	runWorker := func(name string, fn func(ctx context.Context) error) {
		workersWg.Add(1)
		go func() {
			defer workersWg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("worker", name).Msg("Паника в фоновом воркере")
				}
			}()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("worker", name).Msg("Фоновый воркер завершился с ошибкой")
			}
		}()
	}

	// Outbox Worker: outbox -> circuit breaker -> Kafka
	outboxWorker := outbox.NewWorker(
		outbox.NewRepository(db),
		circuitbreaker.NewProducer(serviceName+"-outbox", kafkaProducer),
		outbox.WorkerConfig{SweepInterval: cfg.Outbox.SweepInterval, BatchSize: cfg.Outbox.BatchSize},
		serviceName,
	)
	runWorker("outbox", func(ctx context.Context) error {
		outboxWorker.Run(ctx)
		return nil
	})

	var consumers []*consumer.CustomerEventsConsumer
	for _, binding := range consumer.Bindings() {
		kc, err := kafka.NewConsumer(kafkaCfg, binding)
		if err != nil {
			log.Fatal().Err(err).Str("queue", binding.Queue).Msg("Ошибка создания Kafka Consumer")
		}
		kc.SetDLQ(kafkaProducer)
		kc.SetRetryBackoff(cfg.Consumer.RetryBackoff)
		kc.SetRedeliveryDelay(cfg.Consumer.RedeliveryDelay)

		c := consumer.NewCustomerEventsConsumer(kc, orderService, cfg.Consumer.MaxRetries)
		consumers = append(consumers, c)
		runWorker(binding.Queue, c.Run)
	}

	// === HTTP ===

	engine := httpapi.NewEngine(httpapi.EngineConfig{
		Service:        serviceName,
		RateLimiter:    limiter,
		ReadinessCheck: httpapi.ReadinessChecker(readinessCheck),
		Debug:          cfg.IsDevelopment(),
	})
	handler.NewOrderHandler(orderService).RegisterRoutes(engine)

	httpServer := httpapi.NewServer(cfg.HTTP, engine)
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка остановки HTTP сервера")
	}

	// Останавливаем consumers и outbox worker
	cancel()
	workersWg.Wait()

	for _, c := range consumers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия Kafka Consumer")
		}
	}
	if err := kafkaProducer.Close(); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия Kafka Producer")
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия Redis")
		}
	}
	if err := dbpkg.CloseMySQL(db); err != nil {
		log.Error().Err(err).Msg("Ошибка закрытия MySQL")
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

	log.Info().Msg("Order Service остановлен")
}
