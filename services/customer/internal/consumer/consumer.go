// Package consumer - реакции Customer Service на события заказов.
package consumer

import (
	"context"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/kafka"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/services/customer/internal/service"
)

// Очереди Customer Service.
var (
	OrderCreatedBinding = kafka.Binding{
		Queue:      "customer.order_created",
		Exchange:   events.ExchangeOrder,
		RoutingKey: events.KeyOrderCreated,
	}
	OrderCanceledBinding = kafka.Binding{
		Queue:      "customer.order_canceled",
		Exchange:   events.ExchangeOrder,
		RoutingKey: events.KeyOrderCanceled,
	}
)

// Bindings возвращает все очереди сервиса.
func Bindings() []kafka.Binding {
	return []kafka.Binding{OrderCreatedBinding, OrderCanceledBinding}
}

// KafkaConsumer - интерфейс для чтения очереди.
// Позволяет замокать kafka.Consumer в unit-тестах.
type KafkaConsumer interface {
	ConsumeWithRetry(ctx context.Context, handler kafka.MessageHandler, maxRetries int) error
	Binding() kafka.Binding
	Close() error
}

// OrderEventsConsumer читает одну очередь и вызывает CustomerService.
type OrderEventsConsumer struct {
	consumer   KafkaConsumer
	service    service.CustomerService
	maxRetries int
}

// NewOrderEventsConsumer создаёт обработчик очереди.
func NewOrderEventsConsumer(consumer KafkaConsumer, svc service.CustomerService, maxRetries int) *OrderEventsConsumer {
	return &OrderEventsConsumer{
		consumer:   consumer,
		service:    svc,
		maxRetries: maxRetries,
	}
}

// Run читает очередь до отмены контекста.
func (c *OrderEventsConsumer) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("queue", c.consumer.Binding().Queue).
		Msg("Запуск обработчика событий заказов")

	return c.consumer.ConsumeWithRetry(ctx, c.handleMessage, c.maxRetries)
}

// Close закрывает очередь.
func (c *OrderEventsConsumer) Close() error {
	return c.consumer.Close()
}

// handleMessage разбирает событие и передаёт его сервису. Сообщение, которое
// нельзя разобрать, логируется и пропускается: повтор его не исправит.
func (c *OrderEventsConsumer) handleMessage(ctx context.Context, msg *kafka.Message) error {
	log := logger.FromContext(ctx)

	in, err := events.Decode(msg.RoutingKey(), msg.Value)
	if err != nil {
		log.Error().
			Err(err).
			Str("routing_key", msg.RoutingKey()).
			Msg("Некорректное сообщение, пропускаем")
		return nil
	}

	switch e := in.Event.(type) {
	case events.OrderCreated:
		return c.service.ReserveCredit(ctx, service.OrderCreatedInfo{
			OrderID:    in.AggregateID,
			CustomerID: e.CustomerID,
			OrderTotal: e.OrderTotal,
		})
	case events.OrderCanceled:
		return c.service.UnreserveCredit(ctx, service.OrderCanceledInfo{
			OrderID:    in.AggregateID,
			CustomerID: e.CustomerID,
		})
	default:
		log.Warn().
			Str("routing_key", msg.RoutingKey()).
			Msg("Событие не обрабатывается Customer Service")
		return nil
	}
}
