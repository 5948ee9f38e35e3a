// Package events defines domain events emitted by sales aggregates.
// Events are written to the outbox in the same database transaction as the
// state change and relayed to the message broker later.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type is the routing name of an event.
type Type string

const (
	TransactionCompleted      Type = "transaction.completed"
	TransactionDrafted        Type = "transaction.drafted"
	TransactionRefunded       Type = "transaction.refunded"
	TransactionCancelled      Type = "transaction.cancelled"
	TransactionHeld           Type = "transaction.held"
	TransactionDeliveryChange Type = "transaction.delivery_status_changed"
)

// AggregateTransaction is the aggregate type for transaction events.
const AggregateTransaction = "transaction"

// Event is a single domain fact.
type Event struct {
	ID            string         `json:"id"`
	Type          Type           `json:"type"`
	AggregateType string         `json:"aggregateType"`
	AggregateID   string         `json:"aggregateId"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Payload       map[string]any `json:"payload"`
}

// New creates an event for a transaction aggregate.
func New(t Type, aggregateID string, payload map[string]any) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          t,
		AggregateType: AggregateTransaction,
		AggregateID:   aggregateID,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}
}

// Publisher stores events for delivery. Implementations join the ambient
// database transaction when one is present in ctx.
type Publisher interface {
	Publish(ctx context.Context, evts ...Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, ...Event) error { return nil }
