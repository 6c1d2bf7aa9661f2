package kafka

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"example.com/credit-saga/pkg/logger"
)

// TopicSpec - параметры создаваемого топика.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// DefaultTopics возвращает топики exchange и DLQ с параметрами для локального кластера.
func DefaultTopics(exchanges ...string) []TopicSpec {
	specs := make([]TopicSpec, 0, len(exchanges)+1)
	for _, ex := range exchanges {
		specs = append(specs, TopicSpec{Name: ex, Partitions: 3, ReplicationFactor: 1})
	}
	return append(specs, TopicSpec{Name: TopicDLQ, Partitions: 1, ReplicationFactor: 1})
}

// EnsureTopics создаёт недостающие топики через контроллер кластера.
func EnsureTopics(brokers []string, topics []TopicSpec) error {
	if len(brokers) == 0 {
		return errors.New("не указаны брокеры Kafka")
	}

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("ошибка подключения к Kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("ошибка получения контроллера Kafka: %w", err)
	}

	ctrlConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("ошибка подключения к контроллеру Kafka: %w", err)
	}
	defer ctrlConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.Partitions,
			ReplicationFactor: t.ReplicationFactor,
		})
	}

	if err := ctrlConn.CreateTopics(configs...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("ошибка создания топиков: %w", err)
	}

	for _, t := range topics {
		logger.Debug().Str("topic", t.Name).Int("partitions", t.Partitions).Msg("Топик Kafka готов")
	}
	return nil
}
