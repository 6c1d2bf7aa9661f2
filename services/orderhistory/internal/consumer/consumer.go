// Package consumer - проекция событий саги в историю заказов.
package consumer

import (
	"context"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/kafka"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/services/orderhistory/internal/service"
)

// Очереди OrderHistory Service.
var (
	CustomerCreatedBinding = kafka.Binding{
		Queue:      "order_history.customer_created",
		Exchange:   events.ExchangeCustomer,
		RoutingKey: events.KeyCustomerCreated,
	}
	CustomerCreditReservationBinding = kafka.Binding{
		Queue:      "order_history.customer_credit_reservation",
		Exchange:   events.ExchangeCustomer,
		RoutingKey: events.KeyCustomerCreditReservation,
	}
	CustomerCreditLimitExceededBinding = kafka.Binding{
		Queue:      "order_history.customer_credit_limit_exceeded",
		Exchange:   events.ExchangeCustomer,
		RoutingKey: events.KeyCustomerCreditLimitExceeded,
	}
	OrderCreatedBinding = kafka.Binding{
		Queue:      "order_history.order_created",
		Exchange:   events.ExchangeOrder,
		RoutingKey: events.KeyOrderCreated,
	}
	OrderCanceledBinding = kafka.Binding{
		Queue:      "order_history.order_canceled",
		Exchange:   events.ExchangeOrder,
		RoutingKey: events.KeyOrderCanceled,
	}
)

// Bindings возвращает все очереди сервиса.
func Bindings() []kafka.Binding {
	return []kafka.Binding{
		CustomerCreatedBinding,
		CustomerCreditReservationBinding,
		CustomerCreditLimitExceededBinding,
		OrderCreatedBinding,
		OrderCanceledBinding,
	}
}

// KafkaConsumer - интерфейс для чтения очереди.
type KafkaConsumer interface {
	ConsumeWithRetry(ctx context.Context, handler kafka.MessageHandler, maxRetries int) error
	Binding() kafka.Binding
	Close() error
}

// ProjectionConsumer читает одну очередь и обновляет историю.
type ProjectionConsumer struct {
	consumer   KafkaConsumer
	service    service.HistoryService
	maxRetries int
}

// NewProjectionConsumer создаёт обработчик очереди.
func NewProjectionConsumer(consumer KafkaConsumer, svc service.HistoryService, maxRetries int) *ProjectionConsumer {
	return &ProjectionConsumer{
		consumer:   consumer,
		service:    svc,
		maxRetries: maxRetries,
	}
}

// Run читает очередь до отмены контекста.
func (c *ProjectionConsumer) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("queue", c.consumer.Binding().Queue).
		Msg("Запуск проекции истории заказов")

	return c.consumer.ConsumeWithRetry(ctx, c.handleMessage, c.maxRetries)
}

// Close закрывает очередь.
func (c *ProjectionConsumer) Close() error {
	return c.consumer.Close()
}

// handleMessage: aggregate_id событий клиента - id клиента,
// событий заказа - id заказа.
func (c *ProjectionConsumer) handleMessage(ctx context.Context, msg *kafka.Message) error {
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
	case events.CustomerCreated:
		return c.service.CustomerCreated(ctx, in.AggregateID, e.Name, e.MoneyLimit)
	case events.CustomerCreditReservation:
		return c.service.CreditReserved(ctx, in.AggregateID, e.OrderID)
	case events.CustomerCreditLimitExceeded:
		return c.service.CreditLimitExceeded(ctx, in.AggregateID, e.OrderID)
	case events.OrderCreated:
		return c.service.OrderCreated(ctx, in.AggregateID, e.CustomerID, e.OrderTotal)
	case events.OrderCanceled:
		return c.service.OrderCanceled(ctx, in.AggregateID, e.CustomerID)
	default:
		log.Warn().
			Str("routing_key", msg.RoutingKey()).
			Msg("Событие не проецируется в историю")
		return nil
	}
}
