package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/infrastructure/storage/postgres"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Handle(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducer(w)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := p.Handle(context.Background(), &postgres.OutboxMessage{
		ID:            "0195-msg",
		AggregateType: "transaction",
		AggregateID:   "0195-tx",
		EventType:     "transaction.completed",
		Payload:       []byte(`{"type":"transaction.completed"}`),
		CreatedAt:     created,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	assert.Equal(t, "0195-tx", string(m.Key))
	assert.JSONEq(t, `{"type":"transaction.completed"}`, string(m.Value))
	assert.Equal(t, created, m.Time)
	assert.Equal(t, "transaction.completed", header(m, "event_type"))
	assert.Equal(t, "0195-msg", header(m, "message_id"))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_HandleError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducer(&fakeWriter{err: boom})

	err := p.Handle(context.Background(), &postgres.OutboxMessage{EventType: "transaction.refunded"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "transaction.refunded")
}

func TestNewWriter(t *testing.T) {
	_, err := NewWriter(nil, "rxpos.transactions")
	assert.ErrorIs(t, err, ErrDisabled)

	w, err := NewWriter([]string{"localhost:9092"}, "rxpos.transactions")
	require.NoError(t, err)
	assert.Equal(t, "rxpos.transactions", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
