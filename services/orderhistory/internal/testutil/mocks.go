// Package testutil содержит моки для тестов OrderHistory Service.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"example.com/credit-saga/services/orderhistory/internal/domain"
)

// =============================================================================
// MockHistoryStore - мок для repository.HistoryStore
// =============================================================================

type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) CreateCustomer(ctx context.Context, customerID int64, name string, moneyLimit int64) (bool, error) {
	args := m.Called(ctx, customerID, name, moneyLimit)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryStore) UpsertOrder(ctx context.Context, orderID, customerID, orderTotal int64) (bool, error) {
	args := m.Called(ctx, orderID, customerID, orderTotal)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryStore) ApproveOrder(ctx context.Context, customerID, orderID int64) (bool, error) {
	args := m.Called(ctx, customerID, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryStore) RejectOrder(ctx context.Context, orderID int64, reason domain.RejectionReason) (bool, error) {
	args := m.Called(ctx, orderID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryStore) CancelOrder(ctx context.Context, customerID, orderID int64) (bool, error) {
	args := m.Called(ctx, customerID, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryStore) GetHistory(ctx context.Context, customerID int64) (*domain.CustomerHistory, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerHistory), args.Error(1)
}

// =============================================================================
// MockHistoryService - мок для service.HistoryService
// =============================================================================

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) CustomerCreated(ctx context.Context, customerID int64, name string, moneyLimit int64) error {
	return m.Called(ctx, customerID, name, moneyLimit).Error(0)
}

func (m *MockHistoryService) OrderCreated(ctx context.Context, orderID, customerID, orderTotal int64) error {
	return m.Called(ctx, orderID, customerID, orderTotal).Error(0)
}

func (m *MockHistoryService) CreditReserved(ctx context.Context, customerID, orderID int64) error {
	return m.Called(ctx, customerID, orderID).Error(0)
}

func (m *MockHistoryService) CreditLimitExceeded(ctx context.Context, customerID, orderID int64) error {
	return m.Called(ctx, customerID, orderID).Error(0)
}

func (m *MockHistoryService) OrderCanceled(ctx context.Context, orderID, customerID int64) error {
	return m.Called(ctx, orderID, customerID).Error(0)
}

func (m *MockHistoryService) GetHistory(ctx context.Context, customerID int64) (*domain.CustomerHistory, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerHistory), args.Error(1)
}
