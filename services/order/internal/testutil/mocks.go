// Package testutil содержит общие моки для тестов Order Service.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/services/order/internal/domain"
	"example.com/credit-saga/services/order/internal/repository"
)

// =============================================================================
// MockOrderRepository - мок для repository.OrderRepository
// =============================================================================

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

// =============================================================================
// MockOutboxSaver - мок для repository.OutboxSaver
// =============================================================================

type MockOutboxSaver struct {
	mock.Mock
}

func (m *MockOutboxSaver) Save(ctx context.Context, aggregateID int64, evts ...events.Event) error {
	return m.Called(ctx, aggregateID, evts).Error(0)
}

// =============================================================================
// Unit of work
// =============================================================================

// MockTx отдаёт заранее заданные моки репозиториев.
type MockTx struct {
	OrderRepo   *MockOrderRepository
	OutboxSaver *MockOutboxSaver
}

func (t *MockTx) Orders() repository.OrderRepository { return t.OrderRepo }
func (t *MockTx) Outbox() repository.OutboxSaver     { return t.OutboxSaver }

// MockUnitOfWork вызывает fn с MockTx и считает коммиты и откаты.
type MockUnitOfWork struct {
	Tx         *MockTx
	Committed  int
	RolledBack int
}

// NewMockUnitOfWork создаёт unit of work с пустыми моками.
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{Tx: &MockTx{
		OrderRepo:   new(MockOrderRepository),
		OutboxSaver: new(MockOutboxSaver),
	}}
}

func (u *MockUnitOfWork) Do(_ context.Context, fn func(tx repository.Tx) error) error {
	if err := fn(u.Tx); err != nil {
		u.RolledBack++
		return err
	}
	u.Committed++
	return nil
}

// =============================================================================
// MockOrderService - мок для service.OrderService
// =============================================================================

// MockOrderService не импортирует service: пакет service тестируется
// снаружи (service_test) и сам использует testutil.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, customerID, orderTotal int64) (*domain.Order, error) {
	args := m.Called(ctx, customerID, orderTotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockOrderService) CustomerNotFound(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockOrderService) CustomerCreditReservation(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockOrderService) CustomerCreditLimitExceeded(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}
