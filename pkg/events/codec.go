package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AggregateIDField - поле, добавляемое к data при публикации.
const AggregateIDField = "aggregate_id"

var (
	// ErrUnknownRoutingKey - routing key не входит в контракт.
	ErrUnknownRoutingKey = errors.New("неизвестный routing key")

	// ErrMissingAggregateID - во входящем сообщении нет aggregate_id.
	ErrMissingAggregateID = errors.New("в сообщении отсутствует aggregate_id")
)

// Data сериализует payload события (поле data записи outbox).
func Data(e Event) ([]byte, error) {
	if e == nil {
		return nil, errors.New("событие не задано")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации события %s: %w", e.Kind(), err)
	}
	return data, nil
}

// WithAggregateID возвращает публикуемый payload: копию data с полем aggregate_id.
// Исходный data не изменяется.
func WithAggregateID(data []byte, aggregateID int64) ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("data не является JSON объектом: %w", err)
		}
	}

	id, err := json.Marshal(aggregateID)
	if err != nil {
		return nil, err
	}
	fields[AggregateIDField] = id

	return json.Marshal(fields)
}

// Inbound - событие, полученное из шины.
type Inbound struct {
	AggregateID int64
	Event       Event
}

// Decode разбирает входящий payload по routing key.
func Decode(routingKey string, payload []byte) (Inbound, error) {
	kind, ok := KindByKey(routingKey)
	if !ok {
		return Inbound{}, fmt.Errorf("%w: %q", ErrUnknownRoutingKey, routingKey)
	}

	var head struct {
		AggregateID *int64 `json:"aggregate_id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return Inbound{}, fmt.Errorf("ошибка разбора сообщения %s: %w", routingKey, err)
	}
	if head.AggregateID == nil {
		return Inbound{}, ErrMissingAggregateID
	}

	ev, err := decodeKind(kind, payload)
	if err != nil {
		return Inbound{}, fmt.Errorf("ошибка разбора события %s: %w", kind, err)
	}

	return Inbound{AggregateID: *head.AggregateID, Event: ev}, nil
}

func decodeKind(kind Kind, payload []byte) (Event, error) {
	switch kind {
	case KindCustomerCreated:
		var e CustomerCreated
		err := json.Unmarshal(payload, &e)
		return e, err
	case KindCustomerCreditReservation:
		var e CustomerCreditReservation
		err := json.Unmarshal(payload, &e)
		return e, err
	case KindCustomerCreditLimitExceeded:
		var e CustomerCreditLimitExceeded
		err := json.Unmarshal(payload, &e)
		return e, err
	case KindCustomerNotFound:
		var e CustomerNotFound
		err := json.Unmarshal(payload, &e)
		return e, err
	case KindOrderCreated:
		var e OrderCreated
		err := json.Unmarshal(payload, &e)
		return e, err
	case KindOrderCanceled:
		var e OrderCanceled
		err := json.Unmarshal(payload, &e)
		return e, err
	default:
		return nil, ErrUnknownRoutingKey
	}
}
