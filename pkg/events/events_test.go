package events

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================================
// Таблица контрактов
// =====================================

func TestContractOf(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		exchange string
		key      string
	}{
		{"CustomerCreated", CustomerCreated{}, "customer.customer", "customer.customer_created"},
		{"CustomerCreditReservation", CustomerCreditReservation{}, "customer.customer", "customer.customer_credit_reservation"},
		{"CustomerCreditLimitExceeded", CustomerCreditLimitExceeded{}, "customer.customer", "customer.customer_credit_limit_exceeded"},
		{"CustomerNotFound", CustomerNotFound{}, "customer.customer", "customer.customer_not_found"},
		{"OrderCreated", OrderCreated{}, "order.order", "order.created"},
		{"OrderCanceled", OrderCanceled{}, "order.order", "order.canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ContractOf(tt.event.Kind())
			require.True(t, ok)
			assert.Equal(t, tt.exchange, c.Exchange)
			assert.Equal(t, tt.key, c.Key)

			kind, ok := KindByKey(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.event.Kind(), kind)
			assert.Equal(t, tt.name, kind.String())
		})
	}
}

func TestContractOf_Unknown(t *testing.T) {
	_, ok := ContractOf(KindUnknown)
	assert.False(t, ok)

	_, ok = KindByKey("order.shipped")
	assert.False(t, ok)
}

// =====================================
// Payload
// =====================================

func TestData(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"CustomerCreated", CustomerCreated{MoneyLimit: 100, Name: "Иван"}, `{"money_limit":100,"name":"Иван"}`},
		{"CustomerCreditReservation", CustomerCreditReservation{OrderID: 7}, `{"order_id":7}`},
		{"CustomerNotFound", CustomerNotFound{OrderID: 9}, `{"order_id":9}`},
		{"OrderCreated", OrderCreated{CustomerID: 1, OrderTotal: 250}, `{"customer_id":1,"order_total":250}`},
		{"OrderCanceled", OrderCanceled{CustomerID: 3}, `{"customer_id":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Data(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestData_Nil(t *testing.T) {
	_, err := Data(nil)
	assert.Error(t, err)
}

func TestWithAggregateID(t *testing.T) {
	data := []byte(`{"order_id":7}`)

	payload, err := WithAggregateID(data, 42)
	require.NoError(t, err)

	assert.JSONEq(t, `{"order_id":7,"aggregate_id":42}`, string(payload))
	// Исходные данные не изменены
	assert.JSONEq(t, `{"order_id":7}`, string(data))
}

func TestWithAggregateID_EmptyData(t *testing.T) {
	payload, err := WithAggregateID(nil, 5)
	require.NoError(t, err)
	assert.JSONEq(t, `{"aggregate_id":5}`, string(payload))
}

func TestWithAggregateID_NotObject(t *testing.T) {
	_, err := WithAggregateID([]byte(`[1,2]`), 5)
	assert.Error(t, err)
}

// =====================================
// Decode
// =====================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		payload string
		want    Inbound
		wantErr error
	}{
		{
			name:    "OrderCreated",
			key:     KeyOrderCreated,
			payload: `{"aggregate_id":10,"customer_id":1,"order_total":100}`,
			want:    Inbound{AggregateID: 10, Event: OrderCreated{CustomerID: 1, OrderTotal: 100}},
		},
		{
			name:    "CustomerCreditReservation",
			key:     KeyCustomerCreditReservation,
			payload: `{"aggregate_id":1,"order_id":10}`,
			want:    Inbound{AggregateID: 1, Event: CustomerCreditReservation{OrderID: 10}},
		},
		{
			name:    "CustomerCreated",
			key:     KeyCustomerCreated,
			payload: `{"aggregate_id":1,"money_limit":500,"name":"Анна"}`,
			want:    Inbound{AggregateID: 1, Event: CustomerCreated{MoneyLimit: 500, Name: "Анна"}},
		},
		{
			name:    "неизвестный ключ",
			key:     "order.shipped",
			payload: `{"aggregate_id":1}`,
			wantErr: ErrUnknownRoutingKey,
		},
		{
			name:    "нет aggregate_id",
			key:     KeyOrderCanceled,
			payload: `{"customer_id":1}`,
			wantErr: ErrMissingAggregateID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.key, []byte(tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(KeyOrderCreated, []byte("not json"))
	assert.Error(t, err)
}

// Публикуемый payload должен разбираться обратно на стороне получателя.
func TestDecode_PublishedPayload(t *testing.T) {
	data, err := Data(OrderCanceled{CustomerID: 4})
	require.NoError(t, err)
	payload, err := WithAggregateID(data, 77)
	require.NoError(t, err)

	in, err := Decode(KeyOrderCanceled, payload)
	require.NoError(t, err)
	assert.Equal(t, int64(77), in.AggregateID)
	assert.Equal(t, OrderCanceled{CustomerID: 4}, in.Event)
}

// =====================================
// Buffer
// =====================================

func TestBuffer(t *testing.T) {
	var buf Buffer
	assert.Equal(t, 0, buf.Len())

	buf.Record(OrderCreated{CustomerID: 1, OrderTotal: 10})
	buf.Record(OrderCanceled{CustomerID: 1})

	got := buf.Events()
	require.Len(t, got, 2)
	assert.Equal(t, KindOrderCreated, got[0].Kind())
	assert.Equal(t, KindOrderCanceled, got[1].Kind())

	// Events возвращает копию
	got[0] = CustomerNotFound{}
	assert.Equal(t, KindOrderCreated, buf.Events()[0].Kind())

	buf.Reset()
	assert.Equal(t, 0, buf.Len())
}

func TestWithAggregateID_KeepsNumbers(t *testing.T) {
	payload, err := WithAggregateID([]byte(`{"order_total":9007199254740993}`), 1)
	require.NoError(t, err)

	var m map[string]json.Number
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&m))
	assert.Equal(t, "9007199254740993", m["order_total"].String())
}
