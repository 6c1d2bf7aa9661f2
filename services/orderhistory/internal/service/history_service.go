// Package service применяет события саги к истории заказов.
package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/pkg/tracing"
	"example.com/credit-saga/services/orderhistory/internal/domain"
	"example.com/credit-saga/services/orderhistory/internal/repository"
)

const tracerName = "orderhistory"

// HistoryService - проекция событий саги в историю заказов клиента.
// Повторная доставка любого события не меняет историю.
type HistoryService interface {
	CustomerCreated(ctx context.Context, customerID int64, name string, moneyLimit int64) error
	OrderCreated(ctx context.Context, orderID, customerID, orderTotal int64) error
	CreditReserved(ctx context.Context, customerID, orderID int64) error
	CreditLimitExceeded(ctx context.Context, customerID, orderID int64) error
	OrderCanceled(ctx context.Context, orderID, customerID int64) error

	// GetHistory возвращает историю или domain.ErrCustomerNotFound.
	GetHistory(ctx context.Context, customerID int64) (*domain.CustomerHistory, error)
}

type historyService struct {
	store repository.HistoryStore
}

// NewHistoryService создаёт сервис истории заказов.
func NewHistoryService(store repository.HistoryStore) HistoryService {
	return &historyService{store: store}
}

func (s *historyService) CustomerCreated(ctx context.Context, customerID int64, name string, moneyLimit int64) error {
	return s.project(ctx, "customer_created",
		[]attribute.KeyValue{attribute.Int64("customer_id", customerID)},
		func(ctx context.Context) (bool, error) {
			return s.store.CreateCustomer(ctx, customerID, name, moneyLimit)
		})
}

func (s *historyService) OrderCreated(ctx context.Context, orderID, customerID, orderTotal int64) error {
	return s.project(ctx, "order_created",
		[]attribute.KeyValue{attribute.Int64("order_id", orderID), attribute.Int64("customer_id", customerID)},
		func(ctx context.Context) (bool, error) {
			return s.store.UpsertOrder(ctx, orderID, customerID, orderTotal)
		})
}

func (s *historyService) CreditReserved(ctx context.Context, customerID, orderID int64) error {
	return s.project(ctx, "credit_reservation",
		[]attribute.KeyValue{attribute.Int64("order_id", orderID), attribute.Int64("customer_id", customerID)},
		func(ctx context.Context) (bool, error) {
			return s.store.ApproveOrder(ctx, customerID, orderID)
		})
}

func (s *historyService) CreditLimitExceeded(ctx context.Context, customerID, orderID int64) error {
	return s.project(ctx, "credit_limit_exceeded",
		[]attribute.KeyValue{attribute.Int64("order_id", orderID), attribute.Int64("customer_id", customerID)},
		func(ctx context.Context) (bool, error) {
			return s.store.RejectOrder(ctx, orderID, domain.RejectionInsufficientCredit)
		})
}

func (s *historyService) OrderCanceled(ctx context.Context, orderID, customerID int64) error {
	return s.project(ctx, "order_canceled",
		[]attribute.KeyValue{attribute.Int64("order_id", orderID), attribute.Int64("customer_id", customerID)},
		func(ctx context.Context) (bool, error) {
			return s.store.CancelOrder(ctx, customerID, orderID)
		})
}

func (s *historyService) GetHistory(ctx context.Context, customerID int64) (*domain.CustomerHistory, error) {
	return s.store.GetHistory(ctx, customerID)
}

// project выполняет одну запись в историю в отдельном спане.
// Ошибки возвращаются как есть: консьюмер повторит сообщение.
func (s *historyService) project(ctx context.Context, name string, attrs []attribute.KeyValue, apply func(context.Context) (bool, error)) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "orderhistory."+name, trace.WithAttributes(attrs...))
	defer span.End()

	log := logger.FromContext(ctx).With().Str("event", name).Logger()
	for _, a := range attrs {
		log = log.With().Int64(string(a.Key), a.Value.AsInt64()).Logger()
	}

	applied, err := apply(ctx)
	switch {
	case errors.Is(err, domain.ErrOrderNotProjected), errors.Is(err, domain.ErrCustomerNotProjected):
		log.Warn().Err(err).Msg("Событие пришло раньше зависимого, будет повторено")
		span.SetStatus(codes.Error, err.Error())
		return err
	case err != nil:
		log.Error().Err(err).Msg("Ошибка записи в историю заказов")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !applied {
		log.Debug().Msg("Событие уже применено, пропускаем")
		return nil
	}

	log.Info().Msg("История заказов обновлена")
	return nil
}
