// Package id generates the primary keys of carts and transactions.
// Keys are UUIDv7, so they sort by creation time.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID is the primary key type of every persisted aggregate.
type ID = uuid.UUID

// New returns a UUIDv7, falling back to a random v4 if the clock source fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse accepts the canonical 36-character form only. Public transaction
// identifiers like "TXN-..." are rejected, which lets callers fall back to
// an identifier lookup.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if len(s) != 36 {
		return uuid.Nil, fmt.Errorf("invalid id length %d", len(s))
	}
	return uuid.Parse(s)
}
