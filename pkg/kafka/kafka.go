// Package kafka - шина событий саги поверх segmentio/kafka-go.
//
// Модель адресации:
//   - exchange -> топик Kafka с тем же именем;
//   - routing key -> заголовок routing_key сообщения;
//   - ключ сообщения -> aggregate_id (порядок событий одного агрегата сохраняется);
//   - очередь -> consumer group, привязанная к exchange шаблоном routing key (Binding).
package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/credit-saga/pkg/logger"
)

// TopicDLQ - топик для сообщений, которые не удалось обработать после всех попыток.
const TopicDLQ = "dlq.credit-saga"

// Заголовки сообщений.
const (
	HeaderRoutingKey    = "routing_key"
	HeaderTraceID       = "trace_id"
	HeaderCorrelationID = "correlation_id"
	HeaderTimestamp     = "timestamp"
)

// Config - подключение к брокерам.
type Config struct {
	Brokers []string
	// ClientID - имя сервиса: client.id в Kafka и метка service в метриках.
	ClientID string
}

// Message - сообщение шины.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Time      time.Time
}

// RoutingKey возвращает routing key из заголовков.
func (m *Message) RoutingKey() string {
	return m.Headers[HeaderRoutingKey]
}

// AggregateKey формирует ключ сообщения из id агрегата.
func AggregateKey(aggregateID int64) []byte {
	return []byte(strconv.FormatInt(aggregateID, 10))
}

func fromKafkaMessage(m kafka.Message) *Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}

	return &Message{
		Topic:     m.Topic,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Partition: m.Partition,
		Offset:    m.Offset,
		Time:      m.Time,
	}
}

func (m *Message) toKafkaMessage() kafka.Message {
	headers := make([]kafka.Header, 0, len(m.Headers))
	for k, v := range m.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return kafka.Message{
		Topic:   m.Topic,
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
		Time:    m.Time,
	}
}

// contextFromMessage переносит trace_id и correlation_id из заголовков в контекст.
func contextFromMessage(ctx context.Context, msg *Message) context.Context {
	return logger.NewContextWithIDs(ctx, msg.Headers[HeaderTraceID], msg.Headers[HeaderCorrelationID])
}
