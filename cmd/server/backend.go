package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"rxpos/internal/config"
	"rxpos/internal/core/idempotency"
	corenumerator "rxpos/internal/core/numerator"
	"rxpos/internal/core/tx"
	"rxpos/internal/domain/address"
	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/domain/events"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/domain/reports"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/http/v1/handlers"
	"rxpos/internal/infrastructure/numerator"
	"rxpos/internal/infrastructure/storage/memory"
	"rxpos/internal/infrastructure/storage/postgres"
	"rxpos/internal/infrastructure/storage/postgres/catalog_repo"
	"rxpos/internal/infrastructure/storage/postgres/document_repo"
	"rxpos/internal/infrastructure/storage/postgres/report_repo"
	"rxpos/pkg/logger"
)

// backend is the set of persistence ports the services run on.
type backend struct {
	name string

	carts        cart.Repository
	transactions transaction.Repository
	collisions   corenumerator.CollisionChecker
	sequences    corenumerator.SequenceStore
	catalog      catalog.Catalog
	addresses    address.Resolver
	methods      paymentmethod.Repository
	reports      reports.Repository
	events       events.Publisher
	audit        audit.Recorder
	history      audit.Reader
	idempotency  idempotency.Store
	txManager    tx.Manager

	checks  map[string]handlers.Pinger
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *logger.Logger) (*backend, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		log.Warn("DATABASE_URL not set, using in-memory storage")
		return memoryBackend(), nil
	}
	return postgresBackend(ctx, cfg, log)
}

func memoryBackend() *backend {
	store := memory.New()
	txs := store.Transactions()
	return &backend{
		name:         "memory",
		carts:        store.Carts(),
		transactions: txs,
		collisions:   txs,
		sequences:    corenumerator.NewMemoryStore(),
		catalog:      store,
		addresses:    store,
		methods:      store,
		reports:      store.Reports(),
		events:       store,
		audit:        store,
		history:      store,
		idempotency:  memory.NewIdempotencyStore(idempotency.DefaultTTL, nil),
		txManager:    store,
		checks:       map[string]handlers.Pinger{},
	}
}

func postgresBackend(ctx context.Context, cfg config.Config, log *logger.Logger) (*backend, error) {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}
	b := &backend{name: "postgres", closers: []func(){pool.Close}}

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		b.Close()
		return nil, err
	}

	codec, err := postgres.NewChangesCodec(postgres.DefaultCompressThreshold)
	if err != nil {
		b.Close()
		return nil, err
	}

	txm := postgres.NewTxManager(pool)
	auditLog := postgres.NewAuditLog(txm, codec)
	txs := document_repo.NewTransactionRepo(txm)

	b.carts = document_repo.NewCartRepo(txm)
	b.transactions = txs
	b.collisions = txs
	b.catalog = catalog_repo.NewMedicineRepo(txm)
	b.addresses = catalog_repo.NewAddressRepo(txm)
	b.methods = catalog_repo.NewPaymentMethodRepo(txm)
	b.reports = report_repo.NewReportRepo(txm)
	b.events = postgres.NewOutboxPublisher(txm)
	b.audit = auditLog
	b.history = auditLog
	b.idempotency = postgres.NewIdempotencyStore(txm, idempotency.DefaultTTL)
	b.txManager = txm
	b.checks = map[string]handlers.Pinger{"postgres": pool}

	if cfg.RedisAddr != "" {
		client, err := numerator.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.sequences = numerator.NewRedisStore(client, "rxpos:seq:")
		b.checks["redis"] = redisPinger{client}
		log.Infow("transaction sequences in redis", "addr", cfg.RedisAddr)
	} else {
		b.sequences = numerator.NewPostgresStore(pool, corenumerator.DefaultOptions())
	}

	stats := pool.Stats()
	log.Infow("database connection established",
		"max_conns", stats.MaxConns,
		"idle_conns", stats.IdleConns,
	)
	return b, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
