// Package outbox - транзакционный outbox.
//
// Save пишет события агрегата в таблицу outbox в той же транзакции, что и
// изменение агрегата. Worker периодически публикует необработанные записи
// в шину и помечает их processed_on. Доставка - at-least-once: запись,
// отправленная до неудачного коммита, будет отправлена повторно.
package outbox

import (
	"fmt"
	"time"

	"example.com/credit-saga/pkg/events"
)

// Message - запись outbox.
type Message struct {
	ID          int64
	Exchange    string
	Key         string // routing key
	AggregateID int64
	Data        []byte // JSON payload события, без aggregate_id
	ProcessedOn *time.Time
	CreatedAt   time.Time
	RetryCount  int
	LastError   *string
}

// Processed возвращает true, если запись уже отправлена.
func (m *Message) Processed() bool {
	return m.ProcessedOn != nil
}

// Payload возвращает публикуемое тело: data с полем aggregate_id.
func (m *Message) Payload() ([]byte, error) {
	return events.WithAggregateID(m.Data, m.AggregateID)
}

// modelFromEvent строит строку outbox для события агрегата.
func modelFromEvent(aggregateID int64, e events.Event) (*Model, error) {
	contract, ok := events.ContractOf(e.Kind())
	if !ok {
		return nil, fmt.Errorf("нет контракта для события %s", e.Kind())
	}

	data, err := events.Data(e)
	if err != nil {
		return nil, err
	}

	return &Model{
		Exchange:    contract.Exchange,
		Key:         contract.Key,
		AggregateID: aggregateID,
		Data:        data,
	}, nil
}
