// Package domain содержит read-модель истории заказов клиента.
package domain

import "errors"

var (
	// ErrCustomerNotFound - истории клиента нет (404).
	ErrCustomerNotFound = errors.New("история клиента не найдена")

	// ErrOrderNotProjected - событие пришло раньше order.created.
	// Сообщение уходит на повтор, затем в DLQ.
	ErrOrderNotProjected = errors.New("заказ ещё не попал в историю")

	// ErrCustomerNotProjected - резервирование пришло раньше customer_created.
	ErrCustomerNotProjected = errors.New("клиент ещё не попал в историю")
)
