// Package testutil содержит общие моки для тестов Customer Service.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/services/customer/internal/domain"
	"example.com/credit-saga/services/customer/internal/repository"
	"example.com/credit-saga/services/customer/internal/service"
)

// =============================================================================
// MockCustomerRepository - мок для repository.CustomerRepository
// =============================================================================

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockCustomerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Update(ctx context.Context, c *domain.Customer) error {
	return m.Called(ctx, c).Error(0)
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
	CustomerRepo *MockCustomerRepository
	OutboxSaver  *MockOutboxSaver
}

func (t *MockTx) Customers() repository.CustomerRepository { return t.CustomerRepo }
func (t *MockTx) Outbox() repository.OutboxSaver           { return t.OutboxSaver }

// MockUnitOfWork вызывает fn с MockTx и считает коммиты и откаты.
type MockUnitOfWork struct {
	Tx         *MockTx
	Committed  int
	RolledBack int
}

// NewMockUnitOfWork создаёт unit of work с пустыми моками.
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{Tx: &MockTx{
		CustomerRepo: new(MockCustomerRepository),
		OutboxSaver:  new(MockOutboxSaver),
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
// MockCustomerService - мок для service.CustomerService
// =============================================================================

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) CreateCustomer(ctx context.Context, name string, moneyLimit int64) (*domain.Customer, error) {
	args := m.Called(ctx, name, moneyLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Customer), args.Error(1)
}

func (m *MockCustomerService) ReserveCredit(ctx context.Context, info service.OrderCreatedInfo) error {
	return m.Called(ctx, info).Error(0)
}

func (m *MockCustomerService) UnreserveCredit(ctx context.Context, info service.OrderCanceledInfo) error {
	return m.Called(ctx, info).Error(0)
}
