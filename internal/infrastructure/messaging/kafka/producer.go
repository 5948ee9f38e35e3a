// Package kafka forwards outbox messages to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"rxpos/internal/infrastructure/storage/postgres"
	"rxpos/pkg/logger"
)

// ErrDisabled is returned when no brokers are configured.
var ErrDisabled = errors.New("kafka disabled")

// MessageWriter is the part of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a writer that hashes message keys to partitions, so all
// events of one transaction land on the same partition in order.
func NewWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, ErrDisabled
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}, nil
}

// Producer implements postgres.OutboxHandler.
type Producer struct {
	writer MessageWriter
}

var _ postgres.OutboxHandler = (*Producer)(nil)

// NewProducer wraps writer.
func NewProducer(writer MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// Handle publishes msg keyed by its aggregate id. The payload is the JSON
// event as stored in the outbox.
func (p *Producer) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AggregateID),
		Value: msg.Payload,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.EventType)},
			{Key: "aggregate_type", Value: []byte(msg.AggregateType)},
			{Key: "message_id", Value: []byte(msg.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s to kafka: %w", msg.EventType, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// LogSink implements postgres.OutboxHandler by logging messages. Used when no
// brokers are configured so the outbox still drains.
type LogSink struct{}

// Handle implements postgres.OutboxHandler.
func (LogSink) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	logger.Info(ctx, "outbox event",
		"message_id", msg.ID,
		"event_type", msg.EventType,
		"aggregate_id", msg.AggregateID,
	)
	return nil
}
