// Package service содержит бизнес-логику Customer Service: HTTP сценарии
// и реакции саги на события заказов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/logger"
	"example.com/credit-saga/services/customer/internal/domain"
	"example.com/credit-saga/services/customer/internal/repository"
)

// OrderCreatedInfo - данные события order.created, нужные для резерва.
type OrderCreatedInfo struct {
	OrderID    int64
	CustomerID int64
	OrderTotal int64
}

// OrderCanceledInfo - данные события order.canceled.
type OrderCanceledInfo struct {
	OrderID    int64
	CustomerID int64
}

// CustomerService определяет интерфейс бизнес-логики клиентов.
type CustomerService interface {
	// CreateCustomer создаёт клиента и пишет CustomerCreated в outbox.
	CreateCustomer(ctx context.Context, name string, moneyLimit int64) (*domain.Customer, error)

	// GetCustomer возвращает клиента с активными резервами.
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)

	// ListCustomers возвращает всех клиентов.
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)

	// ReserveCredit реагирует на созданный заказ.
	ReserveCredit(ctx context.Context, info OrderCreatedInfo) error

	// UnreserveCredit реагирует на отменённый заказ.
	UnreserveCredit(ctx context.Context, info OrderCanceledInfo) error
}

// customerService - реализация CustomerService.
type customerService struct {
	repo repository.CustomerRepository
	uow  repository.UnitOfWork
	now  func() time.Time
}

// NewCustomerService создаёт сервис клиентов. repo используется для чтения,
// все изменения идут через uow.
func NewCustomerService(repo repository.CustomerRepository, uow repository.UnitOfWork) CustomerService {
	return &customerService{
		repo: repo,
		uow:  uow,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateCustomer создаёт клиента и CustomerCreated в одной транзакции.
func (s *customerService) CreateCustomer(ctx context.Context, name string, moneyLimit int64) (*domain.Customer, error) {
	log := logger.FromContext(ctx)

	var buf events.Buffer
	customer := domain.NewCustomer(name, moneyLimit, &buf)

	err := s.uow.Do(ctx, func(tx repository.Tx) error {
		if err := tx.Customers().Create(ctx, customer); err != nil {
			return err
		}
		return tx.Outbox().Save(ctx, customer.ID, buf.Events()...)
	})
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("Ошибка создания клиента")
		return nil, fmt.Errorf("ошибка создания клиента: %w", err)
	}

	log.Info().
		Int64("customer_id", customer.ID).
		Int64("money_limit", customer.MoneyLimit).
		Msg("Клиент создан")

	return customer, nil
}

// GetCustomer возвращает клиента по ID.
func (s *customerService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

// ListCustomers возвращает всех клиентов.
func (s *customerService) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	return s.repo.List(ctx)
}

// ReserveCredit пытается зарезервировать кредит под заказ.
//
// Клиент не найден - в outbox пишется CustomerNotFound с aggregate_id заказа.
// Резерв под этот заказ уже есть - повторная доставка, ничего не делаем.
// Иначе резерв или отказ по лимиту, обновление с проверкой версии и outbox.
func (s *customerService) ReserveCredit(ctx context.Context, info OrderCreatedInfo) error {
	log := logger.FromContext(ctx).With().
		Int64("order_id", info.OrderID).
		Int64("customer_id", info.CustomerID).
		Logger()

	var (
		buf       events.Buffer
		duplicate bool
	)

	err := s.uow.Do(ctx, func(tx repository.Tx) error {
		buf.Reset()
		duplicate = false

		customer, err := tx.Customers().GetByID(ctx, info.CustomerID)
		if errors.Is(err, domain.ErrCustomerNotFound) {
			buf.Record(events.CustomerNotFound{OrderID: info.OrderID})
			return tx.Outbox().Save(ctx, info.OrderID, buf.Events()...)
		}
		if err != nil {
			return err
		}

		if customer.HasReservation(info.OrderID) {
			duplicate = true
			return nil
		}

		customer.ReserveCredit(info.OrderID, info.OrderTotal, &buf)

		// Обновляем и при отказе: версия подтверждает, что решение принято
		// по актуальному лимиту.
		if err := tx.Customers().Update(ctx, customer); err != nil {
			return err
		}
		return tx.Outbox().Save(ctx, customer.ID, buf.Events()...)
	})
	if err != nil {
		log.Error().Err(err).Msg("Ошибка резервирования кредита")
		return fmt.Errorf("ошибка резервирования кредита под заказ %d: %w", info.OrderID, err)
	}

	if duplicate {
		log.Info().Msg("Резерв под заказ уже существует, повторная доставка пропущена")
		return nil
	}

	for _, e := range buf.Events() {
		switch e.(type) {
		case events.CustomerNotFound:
			log.Warn().Msg("Клиент не найден, заказ будет отклонён")
		case events.CustomerCreditReservation:
			log.Info().Int64("amount", info.OrderTotal).Msg("Кредит зарезервирован")
		case events.CustomerCreditLimitExceeded:
			log.Info().Int64("amount", info.OrderTotal).Msg("Превышен кредитный лимит")
		}
	}
	return nil
}

// UnreserveCredit снимает резерв под отменённый заказ. Отсутствие клиента
// или резерва логируется и не считается ошибкой. Лимит не возвращается.
func (s *customerService) UnreserveCredit(ctx context.Context, info OrderCanceledInfo) error {
	log := logger.FromContext(ctx).With().
		Int64("order_id", info.OrderID).
		Int64("customer_id", info.CustomerID).
		Logger()

	var missing error

	err := s.uow.Do(ctx, func(tx repository.Tx) error {
		missing = nil

		customer, err := tx.Customers().GetByID(ctx, info.CustomerID)
		if errors.Is(err, domain.ErrCustomerNotFound) {
			missing = err
			return nil
		}
		if err != nil {
			return err
		}

		if err := customer.UnreserveCredit(info.OrderID, s.now()); err != nil {
			if errors.Is(err, domain.ErrReservationNotFound) {
				missing = err
				return nil
			}
			return err
		}

		return tx.Customers().Update(ctx, customer)
	})
	if err != nil {
		log.Error().Err(err).Msg("Ошибка снятия резерва")
		return fmt.Errorf("ошибка снятия резерва под заказ %d: %w", info.OrderID, err)
	}

	if missing != nil {
		log.Warn().Err(missing).Msg("Снимать нечего")
		return nil
	}

	log.Info().Msg("Резерв снят")
	return nil
}
