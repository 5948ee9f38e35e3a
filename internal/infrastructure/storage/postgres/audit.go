package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"rxpos/internal/domain/audit"
)

// DefaultCompressThreshold is the changes size above which entries are stored
// zstd-compressed.
const DefaultCompressThreshold = 10 * 1024

// ChangesCodec encodes audit changes, compressing large payloads.
type ChangesCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewChangesCodec creates a codec. threshold <= 0 selects the default.
func NewChangesCodec(threshold int) (*ChangesCodec, error) {
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ChangesCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode returns exactly one of plain JSON or compressed bytes.
func (c *ChangesCodec) Encode(changes map[string]any) (plain, compressed []byte, err error) {
	if len(changes) == 0 {
		return nil, nil, nil
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal changes: %w", err)
	}
	if len(raw) <= c.threshold {
		return raw, nil, nil
	}
	return nil, c.encoder.EncodeAll(raw, nil), nil
}

// Decode reverses Encode.
func (c *ChangesCodec) Decode(plain, compressed []byte) (map[string]any, error) {
	raw := plain
	if len(compressed) > 0 {
		var err error
		if raw, err = c.decoder.DecodeAll(compressed, nil); err != nil {
			return nil, fmt.Errorf("decompress changes: %w", err)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var changes map[string]any
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	return changes, nil
}

// AuditLog stores audit entries in sys_audit.
type AuditLog struct {
	txManager *TxManager
	codec     *ChangesCodec
}

var (
	_ audit.Recorder = (*AuditLog)(nil)
	_ audit.Reader   = (*AuditLog)(nil)
)

// NewAuditLog creates an audit log.
func NewAuditLog(txManager *TxManager, codec *ChangesCodec) *AuditLog {
	return &AuditLog{txManager: txManager, codec: codec}
}

// Record implements audit.Recorder.
func (l *AuditLog) Record(ctx context.Context, e audit.Entry) error {
	plain, compressed, err := l.codec.Encode(e.Changes)
	if err != nil {
		return err
	}
	_, err = l.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (entity_type, entity_id, action, user_id, changes, changes_compressed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.EntityType, e.EntityID, string(e.Action), e.UserID, plain, compressed, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History implements audit.Reader, newest first.
func (l *AuditLog) History(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	rows, err := l.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT entity_type, entity_id, action, user_id, changes, changes_compressed, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0)
	for rows.Next() {
		var (
			e                 audit.Entry
			action            string
			plain, compressed []byte
		)
		if err := rows.Scan(&e.EntityType, &e.EntityID, &action, &e.UserID, &plain, &compressed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = audit.Action(action)
		if e.Changes, err = l.codec.Decode(plain, compressed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
