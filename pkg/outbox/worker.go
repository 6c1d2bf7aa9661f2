package outbox

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"example.com/credit-saga/pkg/kafka"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/pkg/metrics"
)

// KafkaProducer - отправка сообщения в шину.
type KafkaProducer interface {
	SendMessage(ctx context.Context, msg *kafka.Message) error
}

// WorkerConfig - настройки публикатора.
type WorkerConfig struct {
	// SweepInterval - интервал между проходами.
	SweepInterval time.Duration

	// BatchSize - максимум записей за проход, 0 - без ограничения.
	BatchSize int
}

// DefaultWorkerConfig возвращает конфигурацию по умолчанию.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		SweepInterval: 5 * time.Second,
		BatchSize:     100,
	}
}

// Worker публикует необработанные записи outbox в шину.
type Worker struct {
	store    TxStore
	producer KafkaProducer
	cfg      WorkerConfig
	service  string
	now      func() time.Time
}

// NewWorker создаёт публикатор. service - имя сервиса для логов и метрик.
// Незаданный SweepInterval берётся из DefaultWorkerConfig.
func NewWorker(store TxStore, producer KafkaProducer, cfg WorkerConfig, service string) *Worker {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultWorkerConfig().SweepInterval
	}
	return &Worker{
		store:    store,
		producer: producer,
		cfg:      cfg,
		service:  service,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run запускает проходы по таймеру. Блокирует до отмены контекста.
// Проходы внутри процесса не пересекаются.
func (w *Worker) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().
		Str("service", w.service).
		Dur("sweep_interval", w.cfg.SweepInterval).
		Int("batch_size", w.cfg.BatchSize).
		Msg("Запуск публикатора outbox")

	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("service", w.service).Msg("Остановка публикатора outbox")
			return
		case <-ticker.C:
			if err := w.PublishAll(ctx); err != nil {
				log.Error().Err(err).Str("service", w.service).Msg("Ошибка прохода outbox")
			}
		}
	}
}

// PublishAll выполняет один проход в собственной транзакции: отправляет
// необработанные записи по возрастанию id и помечает отправленные.
// Ошибка отправки одной записи не прерывает проход: запись остаётся
// необработанной до следующего раза. Возвращает ошибку только при сбое БД.
func (w *Worker) PublishAll(ctx context.Context) error {
	ctx, span := otel.Tracer("outbox").Start(ctx, "outbox.sweep")
	defer span.End()

	start := time.Now()
	defer func() { metrics.ObserveOutboxSweep(w.service, time.Since(start)) }()

	var sent, failed int
	err := w.store.InTransaction(ctx, func(s Store) error {
		records, err := s.Pending(ctx, w.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, record := range records {
			if ctx.Err() != nil {
				break
			}
			if err := w.publish(ctx, s, record); err != nil {
				failed++
				continue
			}
			sent++
		}
		return nil
	})

	span.SetAttributes(attribute.Int("outbox.sent", sent), attribute.Int("outbox.failed", failed))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("ошибка публикации outbox: %w", err)
	}

	if sent > 0 || failed > 0 {
		log := logger.FromContext(ctx)
		log.Debug().
			Str("service", w.service).
			Int("sent", sent).
			Int("failed", failed).
			Msg("Проход outbox завершён")
	}
	return nil
}

// publish отправляет одну запись. Ошибка означает, что запись не отправлена.
func (w *Worker) publish(ctx context.Context, s Store, record *Message) error {
	log := logger.FromContext(ctx).With().
		Int64("outbox_id", record.ID).
		Str("exchange", record.Exchange).
		Str("routing_key", record.Key).
		Int64("aggregate_id", record.AggregateID).
		Logger()

	payload, err := record.Payload()
	if err != nil {
		log.Error().Err(err).Msg("Некорректный data в записи outbox")
		w.markFailed(ctx, s, record, err)
		return err
	}

	msg := &kafka.Message{
		Topic:   record.Exchange,
		Key:     kafka.AggregateKey(record.AggregateID),
		Value:   payload,
		Headers: map[string]string{kafka.HeaderRoutingKey: record.Key},
	}

	err = w.producer.SendMessage(ctx, msg)
	metrics.RecordOutboxPublish(w.service, err)
	if err != nil {
		log.Error().Err(err).Int("retry_count", record.RetryCount).Msg("Ошибка отправки записи outbox")
		w.markFailed(ctx, s, record, err)
		return err
	}

	if err := s.MarkProcessed(ctx, record.ID, w.now()); err != nil {
		// сообщение уже в шине: при следующем проходе уйдёт дубликат
		log.Error().Err(err).Msg("Ошибка пометки записи outbox как отправленной")
		return err
	}

	log.Debug().Msg("Запись outbox отправлена")
	return nil
}

func (w *Worker) markFailed(ctx context.Context, s Store, record *Message, cause error) {
	if err := s.MarkFailed(ctx, record.ID, cause); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("outbox_id", record.ID).Msg("Ошибка сохранения попытки outbox")
	}
}
