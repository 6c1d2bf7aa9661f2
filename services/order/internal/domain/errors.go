// Package domain содержит бизнес-сущности и доменные ошибки Order Service.
package domain

import "errors"

// Доменные ошибки Order Service.
var (
	// ErrOrderNotFound возвращается, когда заказ не найден или удалён.
	ErrOrderNotFound = errors.New("заказ не найден")

	// ErrCancelNotApproved - отмена заказа не в статусе APPROVED.
	// Не блокирует отмену, сообщает о нарушении порядка событий.
	ErrCancelNotApproved = errors.New("отменяется заказ не в статусе APPROVED")

	// ErrInvalidTransition - ответ Customer Service пришёл для заказа не в PENDING.
	// Заказ при этом не меняется.
	ErrInvalidTransition = errors.New("заказ уже не ожидает решения по кредиту")

	// ErrConcurrencyConflict - заказ изменён параллельной транзакцией.
	ErrConcurrencyConflict = errors.New("конфликт версий заказа")
)
