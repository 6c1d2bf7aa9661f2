package outbox

import (
	"context"
	"database/sql"
	"errors"
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

var outboxColumns = []string{"id", "exchange", "key", "aggregate_id", "data", "processed_on", "created_at", "retry_count", "last_error"}

// =====================================
// Тесты Save
// =====================================

func TestRepository_Save(t *testing.T) {
	tests := []struct {
		name        string
		events      []events.Event
		mockSetup   func(mock sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name:      "без событий - нет запросов",
			events:    nil,
			mockSetup: func(sqlmock.Sqlmock) {},
		},
		{
			name:   "одно событие",
			events: []events.Event{events.CustomerCreated{MoneyLimit: 100, Name: "Ann"}},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `outbox`")).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "несколько событий одной пачкой",
			events: []events.Event{
				events.CustomerCreditReservation{OrderID: 7},
				events.CustomerCreditLimitExceeded{OrderID: 8},
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `outbox`") + ".*VALUES \\(.*\\),\\(.*\\)").
					WillReturnResult(sqlmock.NewResult(1, 2))
				mock.ExpectCommit()
			},
		},
		{
			name:   "ошибка БД",
			events: []events.Event{events.OrderCreated{CustomerID: 1, OrderTotal: 10}},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `outbox`")).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			expectedErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			err := NewRepository(gormDB).Save(context.Background(), 42, tt.events...)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestModelFromEvent(t *testing.T) {
	m, err := modelFromEvent(7, events.CustomerNotFound{OrderID: 7})
	require.NoError(t, err)

	assert.Equal(t, "customer.customer", m.Exchange)
	assert.Equal(t, "customer.customer_not_found", m.Key)
	assert.Equal(t, int64(7), m.AggregateID)
	assert.JSONEq(t, `{"order_id":7}`, string(m.Data))
	assert.Nil(t, m.ProcessedOn)
}

// =====================================
// Тесты публикатора на уровне SQL
// =====================================

func TestRepository_InTransaction_Pending(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(outboxColumns).
		AddRow(1, "order.order", "order.created", 5, []byte(`{"customer_id":1,"order_total":10}`), nil, now, 0, nil).
		AddRow(2, "order.order", "order.canceled", 5, []byte(`{"customer_id":1}`), nil, now, 2, "timeout")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox` WHERE processed_on IS NULL ORDER BY id ASC LIMIT .* FOR UPDATE SKIP LOCKED").
		WillReturnRows(rows)
	mock.ExpectCommit()

	var got []*Message
	err := NewRepository(gormDB).InTransaction(context.Background(), func(s Store) error {
		var err error
		got, err = s.Pending(context.Background(), 100)
		return err
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "order.created", got[0].Key)
	assert.False(t, got[0].Processed())
	assert.Equal(t, 2, got[1].RetryCount)
	require.NotNil(t, got[1].LastError)
	assert.Equal(t, "timeout", *got[1].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InTransaction_RollbackOnError(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox`").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := NewRepository(gormDB).InTransaction(context.Background(), func(s Store) error {
		_, err := s.Pending(context.Background(), 0)
		return err
	})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkProcessed(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{name: "запись помечена", affected: 1},
		{name: "запись не найдена", affected: 0, expectedErr: ErrMessageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("UPDATE `outbox` SET `processed_on`=? WHERE id = ?")).
				WithArgs(at, int64(3)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			err := NewRepository(gormDB).MarkProcessed(context.Background(), 3, at)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_MarkFailed(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `outbox` SET .*retry_count.*retry_count \\+ 1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewRepository(gormDB).MarkFailed(context.Background(), 3, errors.New("broker down"))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
