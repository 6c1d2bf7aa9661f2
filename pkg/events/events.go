// Package events - доменные события саги резервирования кредита.
//
// Набор событий закрыт: Event реализуют только типы этого пакета.
// Exchange и routing key события берутся из таблицы контрактов (contracts.go)
// по его Kind, payload - это JSON самой структуры события.
package events

// Kind - тег варианта события.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCustomerCreated
	KindCustomerCreditReservation
	KindCustomerCreditLimitExceeded
	KindCustomerNotFound
	KindOrderCreated
	KindOrderCanceled
)

// String возвращает имя варианта для логов и метрик.
func (k Kind) String() string {
	switch k {
	case KindCustomerCreated:
		return "CustomerCreated"
	case KindCustomerCreditReservation:
		return "CustomerCreditReservation"
	case KindCustomerCreditLimitExceeded:
		return "CustomerCreditLimitExceeded"
	case KindCustomerNotFound:
		return "CustomerNotFound"
	case KindOrderCreated:
		return "OrderCreated"
	case KindOrderCanceled:
		return "OrderCanceled"
	default:
		return "Unknown"
	}
}

// Event - доменное событие. Создаётся только как побочный эффект перехода
// состояния агрегата.
type Event interface {
	Kind() Kind
	sealed()
}

// CustomerCreated - клиент зарегистрирован.
type CustomerCreated struct {
	MoneyLimit int64  `json:"money_limit"`
	Name       string `json:"name"`
}

// CustomerCreditReservation - кредит под заказ зарезервирован.
type CustomerCreditReservation struct {
	OrderID int64 `json:"order_id"`
}

// CustomerCreditLimitExceeded - сумма заказа превышает лимит клиента.
type CustomerCreditLimitExceeded struct {
	OrderID int64 `json:"order_id"`
}

// CustomerNotFound - компенсирующее событие: клиент заказа не существует.
// aggregate_id в outbox - это id заказа, а не клиента.
type CustomerNotFound struct {
	OrderID int64 `json:"order_id"`
}

// OrderCreated - заказ создан в статусе PENDING.
type OrderCreated struct {
	CustomerID int64 `json:"customer_id"`
	OrderTotal int64 `json:"order_total"`
}

// OrderCanceled - заказ отменён, кредит нужно освободить.
type OrderCanceled struct {
	CustomerID int64 `json:"customer_id"`
}

func (CustomerCreated) Kind() Kind             { return KindCustomerCreated }
func (CustomerCreditReservation) Kind() Kind   { return KindCustomerCreditReservation }
func (CustomerCreditLimitExceeded) Kind() Kind { return KindCustomerCreditLimitExceeded }
func (CustomerNotFound) Kind() Kind            { return KindCustomerNotFound }
func (OrderCreated) Kind() Kind                { return KindOrderCreated }
func (OrderCanceled) Kind() Kind               { return KindOrderCanceled }

func (CustomerCreated) sealed()             {}
func (CustomerCreditReservation) sealed()   {}
func (CustomerCreditLimitExceeded) sealed() {}
func (CustomerNotFound) sealed()            {}
func (OrderCreated) sealed()                {}
func (OrderCanceled) sealed()               {}
