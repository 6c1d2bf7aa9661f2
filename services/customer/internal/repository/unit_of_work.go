package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/credit-saga/pkg/events"
	"example.com/credit-saga/pkg/outbox"
)

// OutboxSaver записывает события агрегата в outbox текущей транзакции.
type OutboxSaver interface {
	Save(ctx context.Context, aggregateID int64, evts ...events.Event) error
}

// Tx - репозитории, привязанные к одной транзакции.
type Tx interface {
	Customers() CustomerRepository
	Outbox() OutboxSaver
}

// UnitOfWork выполняет fn в транзакции: коммит при nil, откат при ошибке.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork создаёт UnitOfWork поверх пула GORM.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(tx Tx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{
			customers: NewCustomerRepository(tx),
			outbox:    outbox.NewRepository(tx),
		})
	})
}

type gormTx struct {
	customers CustomerRepository
	outbox    OutboxSaver
}

func (t *gormTx) Customers() CustomerRepository { return t.customers }
func (t *gormTx) Outbox() OutboxSaver           { return t.outbox }

// Models возвращает GORM модели сервиса для AutoMigrate.
func Models() []any {
	return []any{&CustomerModel{}, &CreditReservationModel{}, &outbox.Model{}}
}
