// Package repository содержит доступ к данным Customer Service (GORM/MySQL).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"example.com/credit-saga/services/customer/internal/domain"
)

// CustomerRepository - хранилище агрегата Customer. Видит только активные
// (не удалённые мягко) строки.
type CustomerRepository interface {
	// Create вставляет клиента и проставляет ему ID.
	Create(ctx context.Context, c *domain.Customer) error

	// GetByID загружает клиента со всеми резервами, включая снятые.
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)

	// List возвращает всех клиентов по возрастанию id.
	List(ctx context.Context) ([]*domain.Customer, error)

	// Update сохраняет клиента с проверкой версии и синхронизирует резервы:
	// новые вставляются, снятые помечаются deleted_at.
	Update(ctx context.Context, c *domain.Customer) error
}

// CustomerModel - GORM модель таблицы customers.
// gorm.DeletedAt включает фильтр deleted_at IS NULL во все запросы.
type CustomerModel struct {
	ID           int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string                   `gorm:"column:name;type:varchar(255);not null"`
	MoneyLimit   int64                    `gorm:"column:money_limit;not null"`
	Version      int64                    `gorm:"column:version;not null;default:1"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt           `gorm:"column:deleted_at;index"`
	Reservations []CreditReservationModel `gorm:"foreignKey:CustomerID;references:ID"`
}

// TableName возвращает имя таблицы в БД.
func (CustomerModel) TableName() string {
	return "customers"
}

// CreditReservationModel - GORM модель таблицы credit_reservations.
type CreditReservationModel struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID int64          `gorm:"column:customer_id;not null;index"`
	OrderID    int64          `gorm:"column:order_id;not null;index"`
	Amount     int64          `gorm:"column:amount;not null"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName возвращает имя таблицы в БД.
func (CreditReservationModel) TableName() string {
	return "credit_reservations"
}

func (m *CustomerModel) toDomain() *domain.Customer {
	c := &domain.Customer{
		ID:           m.ID,
		Name:         m.Name,
		MoneyLimit:   m.MoneyLimit,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		DeletedAt:    deletedAtPtr(m.DeletedAt),
		Reservations: make([]domain.CreditReservation, len(m.Reservations)),
	}
	for i := range m.Reservations {
		c.Reservations[i] = *m.Reservations[i].toDomain()
	}
	return c
}

func (m *CreditReservationModel) toDomain() *domain.CreditReservation {
	return &domain.CreditReservation{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		OrderID:    m.OrderID,
		Amount:     m.Amount,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		DeletedAt:  deletedAtPtr(m.DeletedAt),
	}
}

func deletedAtPtr(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

// customerModelFromDomain конвертирует клиента без резервов: резервы
// сохраняются отдельно в Update.
func customerModelFromDomain(c *domain.Customer) *CustomerModel {
	return &CustomerModel{
		ID:         c.ID,
		Name:       c.Name,
		MoneyLimit: c.MoneyLimit,
		Version:    c.Version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// customerRepository - GORM реализация CustomerRepository.
type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository создаёт репозиторий поверх db (пул или транзакция).
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create вставляет клиента с версией 1.
func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	c.Version = 1
	model := customerModelFromDomain(c)

	if err := r.db.WithContext(ctx).Omit("Reservations").Create(model).Error; err != nil {
		return fmt.Errorf("ошибка создания клиента: %w", err)
	}

	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID загружает клиента со всеми резервами. Снятые резервы нужны,
// чтобы повторное OrderCreated после отмены не зарезервировало кредит снова.
func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var model CustomerModel

	err := r.db.WithContext(ctx).
		Preload("Reservations", func(db *gorm.DB) *gorm.DB { return db.Unscoped().Order("id ASC") }).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("ошибка загрузки клиента %d: %w", id, err)
	}

	return model.toDomain(), nil
}

// List возвращает клиентов без резервов.
func (r *customerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	var models []CustomerModel

	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения списка клиентов: %w", err)
	}

	result := make([]*domain.Customer, len(models))
	for i := range models {
		result[i] = models[i].toDomain()
	}
	return result, nil
}

// Update выполняет UPDATE ... WHERE id = ? AND version = ?. Если строка не
// обновилась, возвращает ErrConcurrencyConflict. Вызывать внутри транзакции.
func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	db := r.db.WithContext(ctx)

	result := db.Model(&CustomerModel{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]any{
			"name":        c.Name,
			"money_limit": c.MoneyLimit,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка обновления клиента %d: %w", c.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrencyConflict
	}
	c.Version++

	for i := range c.Reservations {
		res := &c.Reservations[i]
		switch {
		case res.ID == 0 && res.Active():
			model := &CreditReservationModel{CustomerID: c.ID, OrderID: res.OrderID, Amount: res.Amount}
			if err := db.Create(model).Error; err != nil {
				return fmt.Errorf("ошибка сохранения резерва под заказ %d: %w", res.OrderID, err)
			}
			res.ID = model.ID
			res.CustomerID = c.ID
			res.CreatedAt = model.CreatedAt
			res.UpdatedAt = model.UpdatedAt
		case res.ID != 0 && !res.Active():
			err := db.Model(&CreditReservationModel{}).
				Where("id = ?", res.ID).
				Update("deleted_at", *res.DeletedAt).Error
			if err != nil {
				return fmt.Errorf("ошибка снятия резерва под заказ %d: %w", res.OrderID, err)
			}
		}
	}

	return nil
}
