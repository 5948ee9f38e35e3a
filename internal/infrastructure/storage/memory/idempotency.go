package memory

import (
	"context"
	"sync"
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/idempotency"
)

type idempotencyRecord struct {
	userID      string
	operation   string
	requestHash string
	status      idempotency.Status
	replay      idempotency.Replay
	createdAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore keeps idempotency keys in process memory.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]*idempotencyRecord
	ttl  time.Duration
	now  func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store whose keys live for ttl.
func NewIdempotencyStore(ttl time.Duration, now func() time.Time) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &IdempotencyStore{keys: make(map[string]*idempotencyRecord), ttl: ttl, now: now}
}

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.keys[key]
	if !ok || now.After(rec.expiresAt) {
		s.keys[key] = &idempotencyRecord{
			userID:      userID,
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			createdAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.userID != userID || rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.operation).
			WithDetail("request_operation", operation)
	}

	switch rec.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := rec.replay
		replay.Body = append([]byte(nil), rec.replay.Body...)
		return idempotency.NormalizeReplay(&replay), nil
	}

	if now.Sub(rec.createdAt) < idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	rec.createdAt = now
	return nil, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, body []byte) error {
	s.finish(key, idempotency.StatusSuccess, statusCode, contentType, body)
	return nil
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, body []byte) error {
	s.finish(key, idempotency.StatusFailed, statusCode, contentType, body)
	return nil
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.keys[key]; ok {
		rec.status = status
		rec.replay = idempotency.Replay{
			StatusCode:  statusCode,
			ContentType: contentType,
			Body:        append([]byte(nil), body...),
		}
	}
}
