// Package circuitbreaker - Circuit Breaker вокруг отправки в шину.
//
// Пока брокер недоступен, публикатор outbox получает мгновенный отказ
// вместо ожидания таймаута на каждой записи. Записи остаются необработанными
// и уходят на следующем проходе после восстановления.
//
// Состояния:
//   - Closed: сообщения отправляются;
//   - Open: отправка отклоняется сразу (ErrOpen);
//   - Half-Open: пропускается MaxRequests пробных отправок.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"example.com/credit-saga/pkg/kafka"
	"example.com/credit-saga/pkg/logger"
)

// ErrOpen - breaker открыт, отправка не выполнялась.
var ErrOpen = errors.New("шина временно недоступна (circuit breaker open)")

// Settings - настройки Circuit Breaker.
type Settings struct {
	MaxRequests  uint32        // запросов в Half-Open
	Interval     time.Duration // сброс счётчиков в Closed
	Timeout      time.Duration // время в Open до перехода в Half-Open
	FailureRatio float64       // доля ошибок для открытия
	MinRequests  uint32        // минимум запросов для расчёта доли
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Sender - отправка сообщения в шину.
type Sender interface {
	SendMessage(ctx context.Context, msg *kafka.Message) error
}

// Producer пропускает SendMessage через Circuit Breaker.
type Producer struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[struct{}]
	name string
}

// NewProducer оборачивает next в breaker с настройками по умолчанию.
func NewProducer(name string, next Sender) *Producer {
	return NewProducerWithSettings(name, next, DefaultSettings())
}

// NewProducerWithSettings оборачивает next в breaker.
func NewProducerWithSettings(name string, next Sender, s Settings) *Producer {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},

		// Отмена контекста - не сбой брокера.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			log := logger.With().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Logger()

			switch to {
			case gobreaker.StateOpen:
				log.Warn().Msg("Circuit Breaker ОТКРЫТ: шина недоступна")
			case gobreaker.StateHalfOpen:
				log.Info().Msg("Circuit Breaker ПОЛУОТКРЫТ: пробная отправка")
			case gobreaker.StateClosed:
				log.Info().Msg("Circuit Breaker ЗАКРЫТ: шина восстановлена")
			}
		},
	})

	return &Producer{next: next, cb: cb, name: name}
}

// SendMessage отправляет сообщение, если breaker не открыт.
func (p *Producer) SendMessage(ctx context.Context, msg *kafka.Message) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.SendMessage(ctx, msg)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s", ErrOpen, p.name)
	default:
		return err
	}
}

// State возвращает текущее состояние breaker.
func (p *Producer) State() gobreaker.State {
	return p.cb.State()
}
