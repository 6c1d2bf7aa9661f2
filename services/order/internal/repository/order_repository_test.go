package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/services/order/internal/domain"
)

// setupMockDB создаёт мок базы данных с GORM.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Ошибка создания sqlmock")

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Ошибка инициализации GORM")

	return gormDB, mock, func() { _ = db.Close() }
}

var orderColumns = []string{"id", "customer_id", "order_total", "state", "rejection_reason", "version", "created_at", "updated_at", "deleted_at"}

// =====================================
// Тесты GetByID
// =====================================

func TestOrderRepository_GetByID(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectedErr error
		check       func(t *testing.T, o *domain.Order)
	}{
		{
			name: "отклонённый заказ",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM `orders` WHERE id = \\? AND `orders`.`deleted_at` IS NULL").
					WillReturnRows(sqlmock.NewRows(orderColumns).
						AddRow(5, 3, 40, "REJECTED", "INSUFFICIENT_CREDIT", 2, now, now, nil))
			},
			check: func(t *testing.T, o *domain.Order) {
				assert.Equal(t, int64(5), o.ID)
				assert.Equal(t, domain.StateRejected, o.State)
				require.NotNil(t, o.RejectionReason)
				assert.Equal(t, domain.RejectionInsufficientCredit, *o.RejectionReason)
				assert.Equal(t, int64(2), o.Version)
			},
		},
		{
			name: "заказ в ожидании без причины",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM `orders`").
					WillReturnRows(sqlmock.NewRows(orderColumns).
						AddRow(5, 3, 40, "PENDING", nil, 1, now, now, nil))
			},
			check: func(t *testing.T, o *domain.Order) {
				assert.Equal(t, domain.StatePending, o.State)
				assert.Nil(t, o.RejectionReason)
			},
		},
		{
			name: "заказ не найден",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM `orders`").WillReturnRows(sqlmock.NewRows(orderColumns))
			},
			expectedErr: domain.ErrOrderNotFound,
		},
		{
			name: "ошибка БД",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM `orders`").WillReturnError(sql.ErrConnDone)
			},
			expectedErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			o, err := NewOrderRepository(gormDB).GetByID(context.Background(), 5)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, o)
			} else {
				require.NoError(t, err)
				tt.check(t, o)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrderRepository_List(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT \\* FROM `orders` WHERE `orders`.`deleted_at` IS NULL ORDER BY id ASC").
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(1, 3, 40, "APPROVED", nil, 2, now, now, nil).
			AddRow(2, 3, 90, "CANCELLED", nil, 3, now, now, nil))

	list, err := NewOrderRepository(gormDB).List(context.Background())

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.StateCancelled, list[1].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =====================================
// Тесты UnitOfWork
// =====================================

func TestUnitOfWork_CreateWithOutbox(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders`")).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `outbox`")).
		WithArgs("order.order", "order.created", int64(5), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var buf events.Buffer
	order := domain.NewOrder(3, 40, &buf)

	err := NewUnitOfWork(gormDB).Do(context.Background(), func(tx Tx) error {
		if err := tx.Orders().Create(context.Background(), order); err != nil {
			return err
		}
		return tx.Outbox().Save(context.Background(), order.ID, buf.Events()...)
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), order.ID)
	assert.Equal(t, int64(1), order.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Откат: outbox не пишется, если заказ не сохранился.
func TestUnitOfWork_RollbackOnCreateError(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders`")).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	var buf events.Buffer
	order := domain.NewOrder(3, 40, &buf)

	err := NewUnitOfWork(gormDB).Do(context.Background(), func(tx Tx) error {
		if err := tx.Orders().Create(context.Background(), order); err != nil {
			return err
		}
		return tx.Outbox().Save(context.Background(), order.ID, buf.Events()...)
	})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		expectedErr error
		wantVersion int64
	}{
		{name: "версия совпала", affected: 1, wantVersion: 3},
		{name: "конфликт версий", affected: 0, expectedErr: domain.ErrConcurrencyConflict, wantVersion: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			mock.ExpectBegin()
			mock.ExpectExec("UPDATE `orders` SET .*`state`=\\?.*`version`=version \\+ 1.* WHERE \\(id = \\? AND version = \\?\\)").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			order := &domain.Order{ID: 5, State: domain.StateApproved, Version: 2}
			err := NewOrderRepository(gormDB).Update(context.Background(), order)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantVersion, order.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
