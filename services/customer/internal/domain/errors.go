// Package domain содержит агрегат Customer и доменные ошибки Customer Service.
package domain

import "errors"

var (
	// ErrCustomerNotFound возвращается, когда активного клиента с таким id нет.
	ErrCustomerNotFound = errors.New("клиент не найден")

	// ErrReservationNotFound - у клиента нет активного резерва под заказ.
	ErrReservationNotFound = errors.New("резерв кредита под заказ не найден")

	// ErrConcurrencyConflict - версия клиента изменилась с момента загрузки.
	ErrConcurrencyConflict = errors.New("клиент изменён параллельной транзакцией")
)
