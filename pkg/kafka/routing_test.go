package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRoutingKey(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"order.created", "order.created", true},
		{"order.created", "order.canceled", false},
		{"order.*", "order.created", true},
		{"order.*", "order.created.v2", false},
		{"*.created", "order.created", true},
		{"order.#", "order", true},
		{"order.#", "order.created.v2", true},
		{"#", "customer.customer_created", true},
		{"#.created", "order.created", true},
		{"#.created", "created", true},
		{"customer.#.exceeded", "customer.credit.limit.exceeded", true},
		{"customer.#.exceeded", "customer.credit.limit", false},
		{"customer.customer_credit_reservation", "customer.customer_credit_limit_exceeded", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchRoutingKey(tt.pattern, tt.key))
		})
	}
}

func TestBinding_Validate(t *testing.T) {
	valid := Binding{Queue: "customer.order_created", Exchange: "order.order", RoutingKey: "order.created"}
	assert.NoError(t, valid.Validate())
	assert.True(t, valid.Matches("order.created"))

	assert.Error(t, Binding{Exchange: "order.order", RoutingKey: "order.created"}.Validate())
	assert.Error(t, Binding{Queue: "q", RoutingKey: "order.created"}.Validate())
	assert.Error(t, Binding{Queue: "q", Exchange: "order.order"}.Validate())
}

func TestAggregateKey(t *testing.T) {
	assert.Equal(t, []byte("42"), AggregateKey(42))
}
