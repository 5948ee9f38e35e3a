// Package entity holds the fields shared by every persisted aggregate.
package entity

import (
	"time"

	"rxpos/internal/core/id"
)

// Validatable is implemented by aggregates that check their own invariants
// before every persist. No database access.
type Validatable interface {
	Validate() error
}

// BaseDocument contains identity, optimistic-locking and audit fields.
type BaseDocument struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented by the repository on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBaseDocument creates a BaseDocument with generated ID and timestamps.
func NewBaseDocument(now time.Time) BaseDocument {
	now = now.UTC()
	return BaseDocument{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (b *BaseDocument) Touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}

// SetVersion updates the version number (used by repository after sync).
func (b *BaseDocument) SetVersion(v int) {
	b.Version = v
}

// GetID returns the document ID.
func (b *BaseDocument) GetID() id.ID {
	return b.ID
}

// GetVersion returns the optimistic-lock version.
func (b *BaseDocument) GetVersion() int {
	return b.Version
}
