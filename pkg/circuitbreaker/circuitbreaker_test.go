package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/credit-saga/pkg/kafka"
)

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) SendMessage(context.Context, *kafka.Message) error {
	s.calls++
	return s.err
}

func testSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestProducer_PassesThrough(t *testing.T) {
	next := &stubSender{}
	p := NewProducerWithSettings("test", next, testSettings())

	require.NoError(t, p.SendMessage(context.Background(), &kafka.Message{Topic: "order.order"}))
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestProducer_OpensAfterFailures(t *testing.T) {
	brokerErr := errors.New("broker unavailable")
	next := &stubSender{err: brokerErr}
	p := NewProducerWithSettings("test", next, testSettings())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := p.SendMessage(ctx, &kafka.Message{})
		assert.ErrorIs(t, err, brokerErr, "до открытия возвращается ошибка брокера")
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.SendMessage(ctx, &kafka.Message{})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 3, next.calls, "в открытом состоянии брокер не вызывается")
}

func TestProducer_CanceledContextIsNotFailure(t *testing.T) {
	next := &stubSender{err: context.Canceled}
	p := NewProducerWithSettings("test", next, testSettings())

	for i := 0; i < 5; i++ {
		_ = p.SendMessage(context.Background(), &kafka.Message{})
	}
	assert.Equal(t, gobreaker.StateClosed, p.State())
}
