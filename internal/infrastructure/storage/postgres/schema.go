package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/jackc/pgx/v5"

	"rxpos/pkg/logger"
)

// Migration is one forward schema step.
type Migration struct {
	Version string
	Up      string
}

// Migrations lists every schema step in order.
var Migrations = []Migration{
	{Version: "1.0.0", Up: schemaV1},
	{Version: "1.1.0", Up: schemaV1_1},
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS medicines (
    ref           TEXT PRIMARY KEY,
    pharmacy_ref  TEXT NOT NULL DEFAULT '',
    name          TEXT NOT NULL,
    generic_name  TEXT NOT NULL DEFAULT '',
    form          TEXT NOT NULL DEFAULT '',
    pack_size     TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL DEFAULT '',
    price         NUMERIC(14,2) NOT NULL,
    cost_price    NUMERIC(14,2),
    quantity      INTEGER NOT NULL DEFAULT 0,
    expiry_date   TIMESTAMPTZ,
    batch_number  TEXT NOT NULL DEFAULT '',
    manufacturer  TEXT NOT NULL DEFAULT '',
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS addresses (
    ref          TEXT PRIMARY KEY,
    owner_ref    TEXT NOT NULL DEFAULT '',
    label        TEXT NOT NULL DEFAULT '',
    line1        TEXT NOT NULL,
    line2        TEXT NOT NULL DEFAULT '',
    city         TEXT NOT NULL,
    state        TEXT NOT NULL DEFAULT '',
    postal_code  TEXT NOT NULL DEFAULT '',
    country      TEXT NOT NULL DEFAULT '',
    phone        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS payment_methods (
    ref             TEXT PRIMARY KEY,
    owner_ref       TEXT NOT NULL,
    type            TEXT NOT NULL,
    provider        TEXT NOT NULL DEFAULT '',
    last4           TEXT NOT NULL DEFAULT '',
    bank_name       TEXT NOT NULL DEFAULT '',
    masked_account  TEXT NOT NULL DEFAULT '',
    sealed_token    BYTEA,
    account_hash    TEXT NOT NULL DEFAULT '',
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_payment_methods_owner ON payment_methods(owner_ref);

CREATE TABLE IF NOT EXISTS carts (
    id                UUID PRIMARY KEY,
    owner_ref         TEXT NOT NULL,
    transaction_type  TEXT NOT NULL,
    status            TEXT NOT NULL,
    expires_at        TIMESTAMPTZ NOT NULL,
    version           INTEGER NOT NULL DEFAULT 1,
    doc               JSONB NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_carts_active
    ON carts(owner_ref, transaction_type, expires_at) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS transactions (
    id                  UUID PRIMARY KEY,
    transaction_id      TEXT NOT NULL UNIQUE,
    transaction_number  TEXT NOT NULL UNIQUE,
    transaction_ref     TEXT NOT NULL UNIQUE,
    owner_ref           TEXT NOT NULL,
    branch_ref          TEXT NOT NULL DEFAULT '',
    transaction_type    TEXT NOT NULL,
    status              TEXT NOT NULL,
    transaction_date    TIMESTAMPTZ NOT NULL,
    total_amount        NUMERIC(14,2) NOT NULL,
    version             INTEGER NOT NULL DEFAULT 1,
    doc                 JSONB NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transactions_owner_date ON transactions(owner_ref, transaction_date);
CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);

CREATE TABLE IF NOT EXISTS sys_sequences (
    key          TEXT PRIMARY KEY,
    current_val  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS sys_outbox (
    id              UUID PRIMARY KEY,
    aggregate_type  TEXT NOT NULL,
    aggregate_id    TEXT NOT NULL,
    event_type      TEXT NOT NULL,
    payload         JSONB NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    retry_count     INTEGER NOT NULL DEFAULT 0,
    last_error      TEXT,
    next_retry_at   TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    published_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON sys_outbox(created_at) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS sys_outbox_dlq (
    id              UUID PRIMARY KEY,
    aggregate_type  TEXT NOT NULL,
    aggregate_id    TEXT NOT NULL,
    event_type      TEXT NOT NULL,
    payload         JSONB NOT NULL,
    retry_count     INTEGER NOT NULL,
    last_error      TEXT,
    created_at      TIMESTAMPTZ NOT NULL,
    failed_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sys_audit (
    id                  BIGSERIAL PRIMARY KEY,
    entity_type         TEXT NOT NULL,
    entity_id           TEXT NOT NULL,
    action              TEXT NOT NULL,
    user_id             TEXT NOT NULL DEFAULT '',
    changes             JSONB,
    changes_compressed  BYTEA,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON sys_audit(entity_type, entity_id, created_at);

CREATE TABLE IF NOT EXISTS sys_idempotency (
    key            TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL DEFAULT '',
    operation      TEXT NOT NULL,
    request_hash   TEXT NOT NULL,
    status         TEXT NOT NULL,
    response_code  INTEGER,
    response_type  TEXT NOT NULL DEFAULT '',
    response_body  BYTEA,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_idempotency_expires ON sys_idempotency(expires_at);
`

// schemaV1_1 adds the lookups used by the category and best-seller reports.
const schemaV1_1 = `
CREATE INDEX IF NOT EXISTS idx_transactions_counted
    ON transactions(transaction_date)
    WHERE status IN ('completed', 'partially_refunded', 'refunded');
CREATE INDEX IF NOT EXISTS idx_medicines_pharmacy ON medicines(pharmacy_ref);
`

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     TEXT PRIMARY KEY,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema applies pending migrations, each in its own transaction.
// Safe to call on every start.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := appliedVersion(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if !current.LessThan(v) {
			continue
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		logger.Info(ctx, "schema migrated", "version", m.Version)
		current = v
	}
	return nil
}

// appliedVersion returns the highest recorded version, 0.0.0 on a fresh database.
func appliedVersion(ctx context.Context, pool *Pool) (*semver.Version, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	recorded, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}

	current := semver.MustParse("0.0.0")
	for _, raw := range recorded {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %q: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, nil
}
