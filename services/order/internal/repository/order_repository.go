// Package repository содержит доступ к данным Order Service (GORM/MySQL).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"example.com/credit-saga/services/order/internal/domain"
)

// OrderRepository - хранилище заказов. Удалённые мягко заказы не видны.
type OrderRepository interface {
	// Create вставляет заказ и проставляет ему ID.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID возвращает заказ или domain.ErrOrderNotFound.
	GetByID(ctx context.Context, id int64) (*domain.Order, error)

	// List возвращает все заказы по возрастанию id.
	List(ctx context.Context) ([]*domain.Order, error)

	// Update сохраняет состояние заказа с проверкой версии.
	Update(ctx context.Context, order *domain.Order) error
}

// OrderModel - GORM модель таблицы orders.
type OrderModel struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID      int64          `gorm:"column:customer_id;not null;index"`
	OrderTotal      int64          `gorm:"column:order_total;not null"`
	State           string         `gorm:"column:state;type:varchar(20);not null;index"`
	RejectionReason *string        `gorm:"column:rejection_reason;type:varchar(32)"`
	Version         int64          `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName возвращает имя таблицы в БД.
func (OrderModel) TableName() string {
	return "orders"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *OrderModel) toDomain() *domain.Order {
	o := &domain.Order{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		OrderTotal: m.OrderTotal,
		State:      domain.State(m.State),
		Version:    m.Version,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.RejectionReason != nil {
		r := domain.RejectionReason(*m.RejectionReason)
		o.RejectionReason = &r
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		o.DeletedAt = &t
	}
	return o
}

func rejectionReasonColumn(r *domain.RejectionReason) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// orderRepository - GORM реализация OrderRepository.
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт репозиторий поверх db (пул или транзакция).
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create вставляет заказ с версией 1.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := &OrderModel{
		CustomerID:      order.CustomerID,
		OrderTotal:      order.OrderTotal,
		State:           string(order.State),
		RejectionReason: rejectionReasonColumn(order.RejectionReason),
		Version:         1,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("ошибка создания заказа: %w", err)
	}

	order.ID = model.ID
	order.Version = model.Version
	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID возвращает заказ по ID.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("ошибка загрузки заказа %d: %w", id, err)
	}

	return model.toDomain(), nil
}

// List возвращает все заказы.
func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel

	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения списка заказов: %w", err)
	}

	result := make([]*domain.Order, len(models))
	for i := range models {
		result[i] = models[i].toDomain()
	}
	return result, nil
}

// Update выполняет UPDATE ... WHERE id = ? AND version = ?.
// Если строка не обновилась, возвращает ErrConcurrencyConflict.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"state":            string(order.State),
			"rejection_reason": rejectionReasonColumn(order.RejectionReason),
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка обновления заказа %d: %w", order.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrencyConflict
	}

	order.Version++
	return nil
}
