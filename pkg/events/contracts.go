package events

// Exchanges. В Kafka каждому exchange соответствует топик с тем же именем.
const (
	ExchangeCustomer = "customer.customer"
	ExchangeOrder    = "order.order"
)

// Routing keys.
const (
	KeyCustomerCreated             = "customer.customer_created"
	KeyCustomerCreditReservation   = "customer.customer_credit_reservation"
	KeyCustomerCreditLimitExceeded = "customer.customer_credit_limit_exceeded"
	KeyCustomerNotFound            = "customer.customer_not_found"
	KeyOrderCreated                = "order.created"
	KeyOrderCanceled               = "order.canceled"
)

// Contract - адрес события на шине.
type Contract struct {
	Exchange string
	Key      string
}

var contracts = map[Kind]Contract{
	KindCustomerCreated:             {Exchange: ExchangeCustomer, Key: KeyCustomerCreated},
	KindCustomerCreditReservation:   {Exchange: ExchangeCustomer, Key: KeyCustomerCreditReservation},
	KindCustomerCreditLimitExceeded: {Exchange: ExchangeCustomer, Key: KeyCustomerCreditLimitExceeded},
	KindCustomerNotFound:            {Exchange: ExchangeCustomer, Key: KeyCustomerNotFound},
	KindOrderCreated:                {Exchange: ExchangeOrder, Key: KeyOrderCreated},
	KindOrderCanceled:               {Exchange: ExchangeOrder, Key: KeyOrderCanceled},
}

var kindsByKey = func() map[string]Kind {
	m := make(map[string]Kind, len(contracts))
	for k, c := range contracts {
		m[c.Key] = k
	}
	return m
}()

// ContractOf возвращает exchange и routing key для варианта события.
func ContractOf(k Kind) (Contract, bool) {
	c, ok := contracts[k]
	return c, ok
}

// KindByKey находит вариант события по routing key.
func KindByKey(key string) (Kind, bool) {
	k, ok := kindsByKey[key]
	return k, ok
}

// Exchanges возвращает все exchange, на которые публикуются события.
func Exchanges() []string {
	return []string{ExchangeCustomer, ExchangeOrder}
}
