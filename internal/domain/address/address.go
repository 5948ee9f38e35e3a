// Package address resolves delivery addresses by reference.
package address

import (
	"context"
	"strings"
)

// Address is a customer delivery address.
type Address struct {
	Ref        string `db:"ref" json:"ref"`
	OwnerRef   string `db:"owner_ref" json:"ownerRef,omitempty"`
	Label      string `db:"label" json:"label,omitempty"`
	Line1      string `db:"line1" json:"line1"`
	Line2      string `db:"line2" json:"line2,omitempty"`
	City       string `db:"city" json:"city"`
	State      string `db:"state" json:"state,omitempty"`
	PostalCode string `db:"postal_code" json:"postalCode,omitempty"`
	Country    string `db:"country" json:"country,omitempty"`
	Phone      string `db:"phone" json:"phone,omitempty"`
}

// String renders a single-line address.
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Resolver looks addresses up by reference.
type Resolver interface {
	// FindAddress returns NOT_FOUND (entity=address) for unknown refs.
	FindAddress(ctx context.Context, ref string) (*Address, error)
}
