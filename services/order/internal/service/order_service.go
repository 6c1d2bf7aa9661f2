// Package service содержит бизнес-логику Order Service.
package service

import (
	"context"
	"errors"
	"fmt"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/services/order/internal/domain"
	"example.com/credit-saga/services/order/internal/repository"
)

// OrderService определяет интерфейс бизнес-логики заказов.
type OrderService interface {
	// CreateOrder создаёт заказ в PENDING и пишет OrderCreated в outbox.
	CreateOrder(ctx context.Context, customerID, orderTotal int64) (*domain.Order, error)

	// GetOrder возвращает заказ по ID.
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)

	// ListOrders возвращает все заказы.
	ListOrders(ctx context.Context) ([]*domain.Order, error)

	// CancelOrder отменяет заказ и пишет OrderCanceled в outbox.
	CancelOrder(ctx context.Context, orderID int64) error

	// CustomerNotFound, CustomerCreditReservation и CustomerCreditLimitExceeded -
	// реакции на ответы Customer Service. Событий не порождают.
	CustomerNotFound(ctx context.Context, orderID int64) error
	CustomerCreditReservation(ctx context.Context, orderID int64) error
	CustomerCreditLimitExceeded(ctx context.Context, orderID int64) error
}

// orderService - реализация OrderService.
type orderService struct {
	repo repository.OrderRepository
	uow  repository.UnitOfWork
}

// NewOrderService создаёт сервис заказов. repo используется для чтения,
// изменения идут через uow.
func NewOrderService(repo repository.OrderRepository, uow repository.UnitOfWork) OrderService {
	return &orderService{repo: repo, uow: uow}
}

// CreateOrder создаёт заказ и OrderCreated в одной транзакции.
func (s *orderService) CreateOrder(ctx context.Context, customerID, orderTotal int64) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	var buf events.Buffer
	order := domain.NewOrder(customerID, orderTotal, &buf)

	err := s.uow.Do(ctx, func(tx repository.Tx) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.Outbox().Save(ctx, order.ID, buf.Events()...)
	})
	if err != nil {
		log.Error().Err(err).Int64("customer_id", customerID).Msg("Ошибка создания заказа")
		return nil, fmt.Errorf("ошибка создания заказа: %w", err)
	}

	log.Info().
		Int64("order_id", order.ID).
		Int64("customer_id", customerID).
		Int64("order_total", orderTotal).
		Msg("Заказ создан")

	return order, nil
}

// GetOrder возвращает заказ по ID.
func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// ListOrders возвращает все заказы.
func (s *orderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.List(ctx)
}

// CancelOrder отменяет заказ. Отмена не из APPROVED выполняется, но
// логируется как нарушение (invariant_violation).
func (s *orderService) CancelOrder(ctx context.Context, orderID int64) error {
	log := logger.FromContext(ctx).With().Int64("order_id", orderID).Logger()

	var (
		buf       events.Buffer
		violation error
		prevState domain.State
	)

	err := s.uow.Do(ctx, func(tx repository.Tx) error {
		buf.Reset()

		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		prevState = order.State
		violation = order.Cancel(&buf)

		if err := tx.Orders().Update(ctx, order); err != nil {
			return err
		}
		return tx.Outbox().Save(ctx, order.ID, buf.Events()...)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			log.Error().Err(err).Msg("Ошибка отмены заказа")
		}
		return fmt.Errorf("ошибка отмены заказа %d: %w", orderID, err)
	}

	if violation != nil {
		log.Warn().
			Err(violation).
			Bool("invariant_violation", true).
			Str("prev_state", string(prevState)).
			Msg("Заказ отменён не из APPROVED")
	}

	log.Info().Msg("Заказ отменён")
	return nil
}

// CustomerNotFound отклоняет заказ: клиента не существует.
func (s *orderService) CustomerNotFound(ctx context.Context, orderID int64) error {
	return s.transition(ctx, orderID, "customer_not_found", (*domain.Order).CustomerNotFound)
}

// CustomerCreditReservation одобряет заказ.
func (s *orderService) CustomerCreditReservation(ctx context.Context, orderID int64) error {
	return s.transition(ctx, orderID, "credit_reservation", (*domain.Order).CreditReservation)
}

// CustomerCreditLimitExceeded отклоняет заказ по лимиту.
func (s *orderService) CustomerCreditLimitExceeded(ctx context.Context, orderID int64) error {
	return s.transition(ctx, orderID, "credit_limit_exceeded", (*domain.Order).CreditLimitExceeded)
}

// transition загружает заказ, применяет переход и сохраняет с проверкой
// версии. Отсутствующий заказ и заказ не в PENDING логируются и не считаются
// ошибкой: такой заказ не сохраняется.
func (s *orderService) transition(ctx context.Context, orderID int64, name string, apply func(*domain.Order) error) error {
	log := logger.FromContext(ctx).With().
		Int64("order_id", orderID).
		Str("transition", name).
		Logger()

	var state domain.State
	skipped := false
	err := s.uow.Do(ctx, func(tx repository.Tx) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		state = order.State
		if err := apply(order); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				skipped = true
				return nil
			}
			return err
		}
		state = order.State
		return tx.Orders().Update(ctx, order)
	})

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		log.Warn().Msg("Заказ не найден, событие пропущено")
		return nil
	case err != nil:
		log.Error().Err(err).Msg("Ошибка обновления статуса заказа")
		return fmt.Errorf("ошибка перехода %s заказа %d: %w", name, orderID, err)
	}

	if skipped {
		log.Warn().Str("state", string(state)).Msg("Заказ не в PENDING, событие пропущено")
		return nil
	}

	log.Info().Str("state", string(state)).Msg("Статус заказа обновлён")
	return nil
}
