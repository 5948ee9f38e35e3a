// Package main is the entry point for the rxpos API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rxpos/internal/config"
	"rxpos/internal/core/idempotency"
	corenumerator "rxpos/internal/core/numerator"
	"rxpos/internal/domain/auth"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/checkout"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/domain/reports"
	"rxpos/internal/domain/transaction"
	v1 "rxpos/internal/infrastructure/http/v1"
	"rxpos/pkg/logger"
	"rxpos/pkg/metrics"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const (
	devJWTSecret = "rxpos-dev-secret-change-me"
	devVaultKey  = "rxpos-dev-vault-key-change-me"
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
		Service:     "rxpos-server",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting rxpos server", "version", Version, "env", cfg.AppEnv)

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer store.Close()
	log.Infow("storage ready", "backend", store.name)

	// --- Metrics ---
	salesMetrics := metrics.NewSales(prometheus.DefaultRegisterer)
	serverMetrics := metrics.NewServerMetrics(prometheus.DefaultRegisterer)

	// --- JWT ---
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET is required in production")
		}
		log.Warn("JWT_SECRET not set, using development secret")
		jwtSecret = devJWTSecret
	}
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Payment methods ---
	vaultKey := cfg.VaultKey
	if vaultKey == "" {
		if cfg.IsProduction() {
			log.Fatal("VAULT_KEY is required in production")
		}
		log.Warn("VAULT_KEY not set, stored payment tokens use a development key")
		vaultKey = devVaultKey
	}
	vault, err := paymentmethod.NewVault(vaultKey)
	if err != nil {
		log.Fatalw("failed to initialize vault", "error", err)
	}
	methods := paymentmethod.NewService(store.methods, vault)

	// --- Payment gateway ---
	var (
		card   payment.CardAuthorizer
		wallet payment.WalletCharger
	)
	if cfg.PaymentGatewayURL != "" || cfg.WalletGatewayURL != "" {
		gw := payment.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.WalletGatewayURL, cfg.PaymentGatewayKey,
			&http.Client{Timeout: cfg.PaymentTimeout})
		if cfg.PaymentGatewayURL != "" {
			card = gw
		}
		if cfg.WalletGatewayURL != "" {
			wallet = gw
		}
	} else {
		log.Warn("no payment gateway configured, card and wallet tenders will fail")
	}
	payments := payment.NewDispatcher(card, wallet, cfg.PaymentTimeout)

	// --- Domain services ---
	ids := corenumerator.NewGenerator(store.sequences, store.collisions)
	transactions := transaction.NewService(transaction.Deps{
		Repo:      store.transactions,
		TxManager: store.txManager,
		IDs:       ids,
		Audit:     store.audit,
		Events:    store.events,
		Metrics:   salesMetrics,
	})
	carts := cart.NewService(store.carts, store.catalog, cfg.CartTTL)
	checkoutService := checkout.NewService(checkout.Deps{
		Catalog:        store.catalog,
		Addresses:      store.addresses,
		Methods:        methods,
		Tokens:         methods,
		Payments:       payments,
		Carts:          carts,
		Transactions:   transactions,
		TxManager:      store.txManager,
		Metrics:        salesMetrics,
		DeliveryFee:    cfg.DeliveryBaseFee,
		DefaultTaxRate: cfg.DefaultTaxRate,
	})

	var idem idempotency.Store
	if cfg.IdempotencyEnabled {
		idem = store.idempotency
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		JWTValidator:   jwtService,
		Carts:          carts,
		Checkout:       checkoutService,
		Transactions:   transactions,
		Reports:        reports.NewService(store.reports),
		PaymentMethods: methods,
		History:        store.history,
		Idempotency:    idem,
		Metrics:        serverMetrics,
		HealthChecks:   store.checks,
		Version:        Version,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr, "idempotency", cfg.IdempotencyEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
