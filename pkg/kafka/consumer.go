package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/pkg/metrics"
)

// MessageHandler обрабатывает одно сообщение. nil - сообщение обработано.
type MessageHandler func(ctx context.Context, msg *Message) error

// DLQSender пересылает сообщение в Dead Letter Queue.
type DLQSender interface {
	SendToDLQ(ctx context.Context, original *Message, processingErr error) error
}

// reader - часть kafka.Reader, которую использует Consumer.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Задержки по умолчанию.
const (
	// DefaultRetryBackoff - первая задержка между повторами обработчика.
	DefaultRetryBackoff = 100 * time.Millisecond
	// DefaultRedeliveryDelay - пауза перед повторной доставкой сообщения,
	// которое не удалось ни обработать, ни отправить в DLQ.
	DefaultRedeliveryDelay = time.Second
)

// Consumer читает очередь (Binding) и передаёт подходящие сообщения обработчику.
// Offset коммитится, только когда сообщение обработано или отправлено в DLQ.
// Иначе то же сообщение доставляется повторно, следующие ждут.
type Consumer struct {
	reader          reader
	binding         Binding
	dlq             DLQSender
	service         string
	retryBackoff    time.Duration
	redeliveryDelay time.Duration
}

// NewConsumer создаёт Consumer для очереди. Consumer group = имя очереди,
// поэтому несколько инстансов сервиса делят очередь между собой.
func NewConsumer(cfg Config, binding Binding) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("не указаны брокеры Kafka")
	}
	if err := binding.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная привязка очереди: %w", err)
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          binding.Exchange,
		GroupID:        binding.Queue,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        100 * time.Millisecond,
		CommitInterval: 0, // синхронный коммит после обработки
		StartOffset:    kafka.FirstOffset,
		Dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})

	logger.Info().
		Str("queue", binding.Queue).
		Str("exchange", binding.Exchange).
		Str("routing_key", binding.RoutingKey).
		Msg("Создан Kafka Consumer")

	return &Consumer{reader: r, binding: binding, service: cfg.ClientID}, nil
}

// SetDLQ задаёт получателя необработанных сообщений.
func (c *Consumer) SetDLQ(dlq DLQSender) {
	c.dlq = dlq
}

// SetRetryBackoff задаёт первую задержку между повторами в ConsumeWithRetry.
func (c *Consumer) SetRetryBackoff(d time.Duration) {
	c.retryBackoff = d
}

// SetRedeliveryDelay задаёт паузу перед повторной доставкой сообщения.
func (c *Consumer) SetRedeliveryDelay(d time.Duration) {
	c.redeliveryDelay = d
}

// Binding возвращает привязку очереди.
func (c *Consumer) Binding() Binding {
	return c.binding
}

// Consume читает сообщения до отмены контекста.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	log := logger.With().Str("queue", c.binding.Queue).Logger()
	log.Info().Msg("Запуск чтения очереди")

	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("Остановка чтения очереди")
			return err
		}

		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Error().Err(err).Msg("Ошибка чтения сообщения из Kafka")
			continue
		}

		msg := fromKafkaMessage(km)
		if err := c.deliver(ctx, msg, handler); err != nil {
			// Offset не коммитим: после перезапуска группа прочитает сообщение снова
			log.Warn().Err(err).Int64("offset", km.Offset).Msg("Сообщение не подтверждено")
			return err
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			log.Error().Err(err).Int64("offset", km.Offset).Msg("Ошибка коммита offset")
		}
	}
}

// deliver повторяет dispatch, пока сообщение не обработано или не отправлено в DLQ.
// Возвращает ошибку только при отмене контекста.
func (c *Consumer) deliver(ctx context.Context, msg *Message, handler MessageHandler) error {
	delay := c.redeliveryDelay
	if delay <= 0 {
		delay = DefaultRedeliveryDelay
	}

	for {
		err := c.dispatch(ctx, msg, handler)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		log := logger.With().Str("queue", c.binding.Queue).Logger()
		log.Warn().
			Err(err).
			Int64("offset", msg.Offset).
			Dur("delay", delay).
			Msg("Сообщение не обработано и не отправлено в DLQ, повторная доставка")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// dispatch вызывает обработчик для сообщений, подходящих под привязку.
// nil - сообщение можно подтвердить: оно пропущено, обработано или ушло в DLQ.
func (c *Consumer) dispatch(ctx context.Context, msg *Message, handler MessageHandler) error {
	if !c.binding.Matches(msg.RoutingKey()) {
		return nil
	}

	msgCtx, span := otel.Tracer("kafka").Start(contextFromMessage(ctx, msg), "consume "+c.binding.Queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.routing_key", msg.RoutingKey()),
			attribute.String("messaging.message.key", string(msg.Key)),
		),
	)
	defer span.End()

	// Логи обработчика получают поле queue
	msgCtx = logger.WithLogger(msgCtx, logger.With().Str("queue", c.binding.Queue).Logger())
	log := logger.FromContext(msgCtx)

	log.Debug().
		Str("routing_key", msg.RoutingKey()).
		Str("key", string(msg.Key)).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("Получено сообщение")

	err := c.safeHandle(msgCtx, msg, handler)
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	// Обработка прервана остановкой сервиса: в DLQ не отправляем
	if ctx.Err() != nil {
		return err
	}

	log.Error().
		Err(err).
		Str("routing_key", msg.RoutingKey()).
		Int64("offset", msg.Offset).
		Msg("Ошибка обработки сообщения")

	if c.dlq == nil {
		return fmt.Errorf("DLQ не настроена: %w", err)
	}
	if dlqErr := c.dlq.SendToDLQ(msgCtx, msg, err); dlqErr != nil {
		log.Error().Err(dlqErr).Msg("Ошибка отправки в DLQ")
		return fmt.Errorf("ошибка отправки в DLQ: %w", dlqErr)
	}
	return nil
}

// safeHandle превращает панику обработчика в ошибку сообщения.
func (c *Consumer) safeHandle(ctx context.Context, msg *Message, handler MessageHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в обработчике: %v", r)
		}
	}()
	return handler(ctx, msg)
}

// ConsumeWithRetry повторяет обработку сообщения до maxRetries раз
// с экспоненциальной задержкой от SetRetryBackoff (по умолчанию 100ms, 200ms, 400ms...).
// Итог обработки каждого сообщения попадает в events_consumed_total.
func (c *Consumer) ConsumeWithRetry(ctx context.Context, handler MessageHandler, maxRetries int) error {
	backoff := c.retryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	retrying := WithBackoff(handler, maxRetries, backoff)
	return c.Consume(ctx, func(ctx context.Context, msg *Message) error {
		err := retrying(ctx, msg)
		metrics.RecordEventConsumed(c.service, c.binding.Queue, err)
		return err
	})
}

// WithRetry оборачивает обработчик повторами с задержкой DefaultRetryBackoff.
func WithRetry(handler MessageHandler, maxRetries int) MessageHandler {
	return WithBackoff(handler, maxRetries, DefaultRetryBackoff)
}

// WithBackoff оборачивает обработчик повторами: задержка перед попыткой n
// равна base*2^(n-1).
func WithBackoff(handler MessageHandler, maxRetries int, base time.Duration) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		var lastErr error
		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				delay := base * time.Duration(1<<(attempt-1))
				log := logger.FromContext(ctx)
				log.Warn().
					Int("attempt", attempt).
					Str("routing_key", msg.RoutingKey()).
					Dur("delay", delay).
					Msg("Повторная попытка обработки сообщения")

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			if lastErr = handler(ctx, msg); lastErr == nil {
				return nil
			}
		}
		return fmt.Errorf("исчерпаны попытки обработки: %w", lastErr)
	}
}

// Close закрывает reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия consumer %s: %w", c.binding.Queue, err)
	}
	logger.Info().Str("queue", c.binding.Queue).Msg("Kafka Consumer закрыт")
	return nil
}
