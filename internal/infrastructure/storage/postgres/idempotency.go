package postgres

import (
	"context"
	"fmt"
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/idempotency"
)

// IdempotencyStore keeps idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store whose keys live for ttl.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type idempotencyRecord struct {
	userID      string
	operation   string
	requestHash string
	status      idempotency.Status
	statusCode  *int32
	contentType string
	body        []byte
	createdAt   time.Time
	inserted    bool
}

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := s.now()
	q := s.txManager.GetQuerier(ctx)

	// xmax = 0 only for the row version this statement inserted
	var rec idempotencyRecord
	err := q.QueryRow(ctx, `
		INSERT INTO sys_idempotency (key, user_id, operation, request_hash, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING user_id, operation, request_hash, status, response_code, response_type, response_body, created_at, (xmax = 0)
	`, key, userID, operation, requestHash, idempotency.StatusPending, now, now.Add(s.ttl)).Scan(
		&rec.userID, &rec.operation, &rec.requestHash, &rec.status,
		&rec.statusCode, &rec.contentType, &rec.body, &rec.createdAt, &rec.inserted,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	if rec.inserted {
		return nil, nil
	}

	if rec.userID != userID || rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.operation).
			WithDetail("request_operation", operation)
	}

	switch rec.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := &idempotency.Replay{ContentType: rec.contentType, Body: rec.body}
		if rec.statusCode != nil {
			replay.StatusCode = int(*rec.statusCode)
		}
		return idempotency.NormalizeReplay(replay), nil
	}

	if now.Sub(rec.createdAt) < idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}

	// pending past StaleAfter: the owner most likely crashed
	tag, err := q.Exec(ctx, `
		UPDATE sys_idempotency SET created_at = $1
		WHERE key = $2 AND status = $3 AND created_at = $4
	`, now, key, idempotency.StatusPending, rec.createdAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, body)
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, body)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response_code = $2, response_type = $3, response_body = $4
		WHERE key = $5
	`, status, statusCode, contentType, body, key)
	if err != nil {
		return fmt.Errorf("finish idempotency key %s: %w", key, err)
	}
	return nil
}

// CleanupExpired removes expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `DELETE FROM sys_idempotency WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
