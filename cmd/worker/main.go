// Package main is the entry point for the rxpos background worker.
// It expires abandoned carts and drains the transaction outbox to Kafka.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rxpos/internal/config"
	"rxpos/internal/core/idempotency"
	"rxpos/internal/domain/cart"
	"rxpos/internal/infrastructure/messaging/kafka"
	"rxpos/internal/infrastructure/storage/postgres"
	"rxpos/internal/infrastructure/storage/postgres/catalog_repo"
	"rxpos/internal/infrastructure/storage/postgres/document_repo"
	"rxpos/pkg/logger"
	"rxpos/pkg/metrics"
)

const (
	relayBatchSize      = 100
	maintenanceInterval = time.Hour
	publishedRetention  = 7 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
		Service:     "rxpos-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required by the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting rxpos worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = 5
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalw("failed to migrate schema", "error", err)
	}

	var sink postgres.OutboxHandler = kafka.LogSink{}
	writer, err := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	switch {
	case errors.Is(err, kafka.ErrDisabled):
		log.Warn("KAFKA_BROKERS not set, outbox events are logged only")
	case err != nil:
		log.Fatalw("failed to create kafka writer", "error", err)
	default:
		producer := kafka.NewProducer(writer)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Errorw("failed to close kafka writer", "error", err)
			}
		}()
		sink = producer
		log.Infow("relaying outbox to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	txm := postgres.NewTxManager(pool)
	worker := &Worker{
		carts:       cart.NewService(document_repo.NewCartRepo(txm), catalog_repo.NewMedicineRepo(txm), cfg.CartTTL),
		relay:       postgres.NewOutboxRelay(txm, relayBatchSize, sink),
		idempotency: postgres.NewIdempotencyStore(txm, idempotency.DefaultTTL),
		pool:        pool,
		metrics:     metrics.NewSales(prometheus.DefaultRegisterer),
		log:         log.WithComponent("worker"),

		sweepInterval: cfg.SweepInterval,
		relayInterval: cfg.RelayInterval,
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Info("worker stopped")
}

// Worker runs the periodic jobs against one database.
type Worker struct {
	carts       *cart.Service
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	pool        *postgres.Pool
	metrics     *metrics.Sales
	log         *logger.Logger

	sweepInterval time.Duration
	relayInterval time.Duration
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.sweepInterval <= 0 {
		w.sweepInterval = time.Minute
	}
	if w.relayInterval <= 0 {
		w.relayInterval = time.Second
	}

	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	relayTicker := time.NewTicker(w.relayInterval)
	defer relayTicker.Stop()

	maintenanceTicker := time.NewTicker(maintenanceInterval)
	defer maintenanceTicker.Stop()

	w.sweepCarts(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			w.sweepCarts(ctx)
		case <-relayTicker.C:
			w.processOutbox(ctx)
		case <-maintenanceTicker.C:
			w.maintain(ctx)
		}
	}
}

func (w *Worker) sweepCarts(ctx context.Context) {
	n, err := w.carts.SweepExpired(ctx)
	if err != nil {
		w.log.Errorw("cart sweep failed", "error", err)
		return
	}
	w.metrics.ObserveSweep(n)
}

// processOutbox drains full batches until the backlog is shorter than one.
func (w *Worker) processOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		delivered, failed, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox relay failed", "error", err)
			return
		}
		w.metrics.ObserveRelay(delivered, true)
		w.metrics.ObserveRelay(failed, false)
		if failed > 0 {
			w.log.Warnw("outbox batch had failures", "delivered", delivered, "failed", failed)
		}
		if delivered+failed < relayBatchSize || failed > 0 {
			return
		}
	}
}

func (w *Worker) maintain(ctx context.Context) {
	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("outbox DLQ move failed", "error", err)
	} else if n > 0 {
		w.log.Warnw("outbox messages moved to DLQ", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, time.Now().UTC().Add(-publishedRetention)); err != nil {
		w.log.Errorw("outbox purge failed", "error", err)
	} else if n > 0 {
		w.log.Infow("published outbox messages purged", "count", n)
	}

	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	w.pool.LogStats(ctx)
}
