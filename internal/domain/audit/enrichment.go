// Package audit records who changed which aggregate and how.
package audit

import (
	"context"
	"time"

	appctx "rxpos/internal/core/context"
)

// Action names the audited operation.
type Action string

const (
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionRefund         Action = "refund"
	ActionCancel         Action = "cancel"
	ActionHold           Action = "hold"
	ActionDeliveryStatus Action = "delivery_status"
)

// Entry is one audit record.
type Entry struct {
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Action     Action         `json:"action"`
	UserID     string         `json:"userId,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Recorder persists entries, joining the ambient transaction if any.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Reader returns the recorded history of one entity, newest first.
type Reader interface {
	History(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error)
}

// NewEntry builds an entry stamped with the user from ctx.
func NewEntry(ctx context.Context, entityType, entityID string, action Action, changes map[string]any) Entry {
	return Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
}

// EnrichCreatedBy sets createdBy and updatedBy from the context user when
// createdBy is still empty. No-op without a user in ctx.
func EnrichCreatedBy(ctx context.Context, createdBy, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return
	}
	if createdBy != nil && *createdBy == "" {
		*createdBy = userID
	}
	if updatedBy != nil {
		*updatedBy = userID
	}
}

// EnrichUpdatedBy sets only updatedBy from the context user.
func EnrichUpdatedBy(ctx context.Context, updatedBy *string) {
	if userID := appctx.GetUserID(ctx); userID != "" && updatedBy != nil {
		*updatedBy = userID
	}
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }
