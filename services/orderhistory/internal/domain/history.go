package domain

// State - статус заказа в истории.
type State string

const (
	StatePending   State = "PENDING"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
	StateCancelled State = "CANCELLED"
)

// RejectionReason - причина отклонения.
type RejectionReason string

const (
	RejectionInsufficientCredit RejectionReason = "INSUFFICIENT_CREDIT"
	RejectionUnknownCustomer    RejectionReason = "UNKNOWN_CUSTOMER"
)

// OrderEntry - заказ в истории клиента.
type OrderEntry struct {
	ID              int64
	OrderTotal      int64
	State           State
	RejectionReason *RejectionReason
}

// CustomerHistory - документ истории клиента. MoneyLimit уменьшается на
// сумму одобренных заказов.
type CustomerHistory struct {
	ID         int64
	Name       string
	MoneyLimit int64
	Orders     []OrderEntry
}
