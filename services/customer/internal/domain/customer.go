package domain

import (
	"time"

	"example.com/credit-saga/pkg/events"
)

// Customer - клиент с кредитным лимитом. Агрегат: резервы кредита
// изменяются только через методы Customer.
type Customer struct {
	ID           int64
	Name         string
	MoneyLimit   int64 // доступный кредит, уменьшается при резервировании
	Reservations []CreditReservation
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// CreditReservation - кредит, зарезервированный под заказ.
type CreditReservation struct {
	ID         int64 // 0 - ещё не сохранён
	CustomerID int64
	OrderID    int64
	Amount     int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time // проставляется при снятии резерва
}

// Active возвращает true, пока резерв не снят.
func (r *CreditReservation) Active() bool {
	return r.DeletedAt == nil
}

// NewCustomer создаёт клиента и записывает CustomerCreated в buf.
// ID присваивается при сохранении.
func NewCustomer(name string, moneyLimit int64, buf *events.Buffer) *Customer {
	buf.Record(events.CustomerCreated{MoneyLimit: moneyLimit, Name: name})
	return &Customer{Name: name, MoneyLimit: moneyLimit}
}

// ReserveCredit резервирует orderTotal под заказ, если хватает лимита
// (граница включительно): лимит уменьшается, добавляется резерв,
// в buf пишется CustomerCreditReservation. Иначе состояние не меняется,
// в buf пишется CustomerCreditLimitExceeded. Возвращает true при резерве.
func (c *Customer) ReserveCredit(orderID, orderTotal int64, buf *events.Buffer) bool {
	if orderTotal > c.MoneyLimit {
		buf.Record(events.CustomerCreditLimitExceeded{OrderID: orderID})
		return false
	}

	c.MoneyLimit -= orderTotal
	c.Reservations = append(c.Reservations, CreditReservation{
		CustomerID: c.ID,
		OrderID:    orderID,
		Amount:     orderTotal,
	})
	buf.Record(events.CustomerCreditReservation{OrderID: orderID})
	return true
}

// UnreserveCredit снимает активный резерв под заказ (мягкое удаление).
// Лимит не возвращается. Без активного резерва возвращает ErrReservationNotFound.
func (c *Customer) UnreserveCredit(orderID int64, now time.Time) error {
	for i := range c.Reservations {
		r := &c.Reservations[i]
		if r.OrderID == orderID && r.Active() {
			r.DeletedAt = &now
			return nil
		}
	}
	return ErrReservationNotFound
}

// HasReservation проверяет, резервировался ли кредит под заказ,
// включая уже снятые резервы.
func (c *Customer) HasReservation(orderID int64) bool {
	for i := range c.Reservations {
		if c.Reservations[i].OrderID == orderID {
			return true
		}
	}
	return false
}

// ActiveReservations возвращает неснятые резервы.
func (c *Customer) ActiveReservations() []CreditReservation {
	active := make([]CreditReservation, 0, len(c.Reservations))
	for _, r := range c.Reservations {
		if r.Active() {
			active = append(active, r)
		}
	}
	return active
}
