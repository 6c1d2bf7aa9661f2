package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/credit-saga/pkg/events"
)

// ErrMessageNotFound - запись outbox не найдена.
var ErrMessageNotFound = errors.New("запись outbox не найдена")

// Store - операции публикатора над outbox внутри одной транзакции.
type Store interface {
	// Pending возвращает необработанные записи по возрастанию id.
	// limit <= 0 - без ограничения.
	Pending(ctx context.Context, limit int) ([]*Message, error)

	// MarkProcessed проставляет processed_on.
	MarkProcessed(ctx context.Context, id int64, at time.Time) error

	// MarkFailed увеличивает retry_count и сохраняет текст ошибки.
	MarkFailed(ctx context.Context, id int64, err error) error
}

// TxStore открывает транзакцию и выдаёт Store, привязанный к ней.
type TxStore interface {
	InTransaction(ctx context.Context, fn func(Store) error) error
}

// Repository - GORM реализация outbox. Привязан к *gorm.DB, переданному
// в NewRepository: внутри unit of work это транзакция вызывающего.
type Repository struct {
	db *gorm.DB
}

// NewRepository создаёт репозиторий поверх db (пул или транзакция).
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save записывает события агрегата одной пачкой. Коммит выполняет вызывающий.
// Без событий ничего не делает.
func (r *Repository) Save(ctx context.Context, aggregateID int64, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	models := make([]*Model, 0, len(evts))
	for _, e := range evts {
		m, err := modelFromEvent(aggregateID, e)
		if err != nil {
			return err
		}
		models = append(models, m)
	}

	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("ошибка записи в outbox: %w", err)
	}
	return nil
}

// InTransaction выполняет fn в новой транзакции.
func (r *Repository) InTransaction(ctx context.Context, fn func(Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Pending блокирует выбранные строки (FOR UPDATE SKIP LOCKED), чтобы
// параллельные публикаторы разных инстансов не брали одни и те же записи.
func (r *Repository) Pending(ctx context.Context, limit int) ([]*Message, error) {
	var models []Model

	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("processed_on IS NULL").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("ошибка чтения outbox: %w", err)
	}

	result := make([]*Message, len(models))
	for i := range models {
		result[i] = models[i].toDomain()
	}
	return result, nil
}

// MarkProcessed помечает запись как отправленную.
func (r *Repository) MarkProcessed(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Model{}).
		Where("id = ?", id).
		Update("processed_on", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkFailed фиксирует неудачную попытку. Запись остаётся необработанной.
func (r *Repository) MarkFailed(ctx context.Context, id int64, err error) error {
	result := r.db.WithContext(ctx).Model(&Model{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  err.Error(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
