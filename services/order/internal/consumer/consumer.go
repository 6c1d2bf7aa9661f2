// Package consumer - реакции Order Service на ответы Customer Service.
package consumer

import (
	"context"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/kafka"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/services/order/internal/service"
)

// Очереди Order Service.
var (
	CustomerNotFoundBinding = kafka.Binding{
		Queue:      "order.customer_not_found",
		Exchange:   events.ExchangeCustomer,
		RoutingKey: events.KeyCustomerNotFound,
	}
	CustomerCreditReservationBinding = kafka.Binding{
		Queue:      "order.customer_credit_reservation",
		Exchange:   events.ExchangeCustomer,
		RoutingKey: events.KeyCustomerCreditReservation,
	}
	CustomerCreditLimitExceededBinding = kafka.Binding{
		Queue:      "order.customer_credit_limit_exceeded",
		Exchange:   events.ExchangeCustomer,
		RoutingKey: events.KeyCustomerCreditLimitExceeded,
	}
)

// Bindings возвращает все очереди сервиса.
func Bindings() []kafka.Binding {
	return []kafka.Binding{
		CustomerNotFoundBinding,
		CustomerCreditReservationBinding,
		CustomerCreditLimitExceededBinding,
	}
}

// KafkaConsumer - интерфейс для чтения очереди.
// Позволяет замокать kafka.Consumer в unit-тестах.
type KafkaConsumer interface {
	ConsumeWithRetry(ctx context.Context, handler kafka.MessageHandler, maxRetries int) error
	Binding() kafka.Binding
	Close() error
}

// CustomerEventsConsumer читает одну очередь и вызывает OrderService.
type CustomerEventsConsumer struct {
	consumer   KafkaConsumer
	service    service.OrderService
	maxRetries int
}

// NewCustomerEventsConsumer создаёт обработчик очереди.
func NewCustomerEventsConsumer(consumer KafkaConsumer, svc service.OrderService, maxRetries int) *CustomerEventsConsumer {
	return &CustomerEventsConsumer{
		consumer:   consumer,
		service:    svc,
		maxRetries: maxRetries,
	}
}

// Run читает очередь до отмены контекста.
func (c *CustomerEventsConsumer) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("queue", c.consumer.Binding().Queue).
		Msg("Запуск обработчика событий клиентов")

	return c.consumer.ConsumeWithRetry(ctx, c.handleMessage, c.maxRetries)
}

// Close закрывает очередь.
func (c *CustomerEventsConsumer) Close() error {
	return c.consumer.Close()
}

// handleMessage разбирает ответ и применяет переход к заказу order_id.
// Сообщение, которое нельзя разобрать, пропускается.
func (c *CustomerEventsConsumer) handleMessage(ctx context.Context, msg *kafka.Message) error {
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
	case events.CustomerNotFound:
		return c.service.CustomerNotFound(ctx, e.OrderID)
	case events.CustomerCreditReservation:
		return c.service.CustomerCreditReservation(ctx, e.OrderID)
	case events.CustomerCreditLimitExceeded:
		return c.service.CustomerCreditLimitExceeded(ctx, e.OrderID)
	default:
		log.Warn().
			Str("routing_key", msg.RoutingKey()).
			Msg("Событие не обрабатывается Order Service")
		return nil
	}
}
