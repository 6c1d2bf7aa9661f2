package domain

import (
	"time"

	"example.com/credit-saga/pkg/events"
)

// State - состояние заказа.
type State string

const (
	// StatePending - заказ создан, ждёт решения по кредиту.
	StatePending State = "PENDING"

	// StateApproved - кредит зарезервирован.
	StateApproved State = "APPROVED"

	// StateRejected - отказ (см. RejectionReason). Конечное состояние.
	StateRejected State = "REJECTED"

	// StateCancelled - заказ отменён.
	StateCancelled State = "CANCELLED"
)

// RejectionReason - причина отказа.
type RejectionReason string

const (
	RejectionInsufficientCredit RejectionReason = "INSUFFICIENT_CREDIT"
	RejectionUnknownCustomer    RejectionReason = "UNKNOWN_CUSTOMER"
)

// Order - заказ клиента.
//
//	PENDING --CreditReservation--> APPROVED --Cancel--> CANCELLED
//	PENDING --CustomerNotFound | CreditLimitExceeded--> REJECTED
type Order struct {
	ID              int64
	CustomerID      int64
	OrderTotal      int64
	State           State
	RejectionReason *RejectionReason // nil, пока заказ не отклонён
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// NewOrder создаёт заказ в PENDING и записывает OrderCreated в buf.
func NewOrder(customerID, orderTotal int64, buf *events.Buffer) *Order {
	buf.Record(events.OrderCreated{CustomerID: customerID, OrderTotal: orderTotal})
	return &Order{
		CustomerID: customerID,
		OrderTotal: orderTotal,
		State:      StatePending,
	}
}

// Переходы по ответам Customer Service допустимы только из PENDING.
// Для остальных состояний возвращается ErrInvalidTransition, заказ не меняется.

// CustomerNotFound отклоняет заказ: клиента не существует.
func (o *Order) CustomerNotFound() error {
	return o.reject(RejectionUnknownCustomer)
}

// CreditReservation одобряет заказ.
func (o *Order) CreditReservation() error {
	if o.State != StatePending {
		return ErrInvalidTransition
	}
	o.State = StateApproved
	o.RejectionReason = nil
	return nil
}

// CreditLimitExceeded отклоняет заказ: не хватило кредита.
func (o *Order) CreditLimitExceeded() error {
	return o.reject(RejectionInsufficientCredit)
}

func (o *Order) reject(reason RejectionReason) error {
	if o.State != StatePending {
		return ErrInvalidTransition
	}
	o.State = StateRejected
	o.RejectionReason = &reason
	return nil
}

// Cancel переводит заказ в CANCELLED и записывает OrderCanceled в buf.
// Для заказа не в APPROVED переход всё равно выполняется, но возвращается
// ErrCancelNotApproved, чтобы вызывающий зафиксировал нарушение.
func (o *Order) Cancel(buf *events.Buffer) error {
	var violation error
	if o.State != StateApproved {
		violation = ErrCancelNotApproved
	}

	o.State = StateCancelled
	buf.Record(events.OrderCanceled{CustomerID: o.CustomerID})
	return violation
}
