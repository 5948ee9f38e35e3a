// Package idempotency defines the replay store behind the Idempotency-Key
// header of mutating endpoints.
package idempotency

import (
	"context"
	"net/http"
	"time"
)

// Status is the state of a key.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// DefaultTTL is how long a finished key keeps replaying its response.
const DefaultTTL = 24 * time.Hour

// StaleAfter is how long a pending key may stay unfinished before another
// request may reclaim it.
const StaleAfter = time.Minute

// Replay is a cached HTTP response.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store persists keys and their responses.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller now owns key, a Replay
	// when the operation already finished, IDEMPOTENCY_CONFLICT while another
	// request holds it, and also IDEMPOTENCY_CONFLICT ("mismatch") when key
	// was used for a different request.
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
}

// NormalizeReplay fills defaults for records written without status or type.
func NormalizeReplay(r *Replay) *Replay {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.ContentType == "" && r.StatusCode != http.StatusNoContent {
		r.ContentType = "application/json"
	}
	return r
}
