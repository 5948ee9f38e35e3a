// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// UserContext is the authenticated cashier or manager. PharmacyID scopes
// every transaction, report and stored payment method the user can reach;
// BranchID is the till location stamped on new transactions.
type UserContext struct {
	UserID     string
	Email      string
	Roles      []string
	PharmacyID string
	BranchID   string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetPharmacyID returns the pharmacy the user works for, or empty string.
func GetPharmacyID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.PharmacyID
	}
	return ""
}

// GetBranchID returns the user's branch, or empty string.
func GetBranchID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.BranchID
	}
	return ""
}

// SamePharmacy reports whether ref is the caller's pharmacy. A caller without
// a pharmacy matches nothing.
func SamePharmacy(ctx context.Context, ref string) bool {
	p := GetPharmacyID(ctx)
	return p != "" && p == ref
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}
