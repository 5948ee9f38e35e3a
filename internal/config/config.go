// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the full runtime configuration of the server and worker.
type Config struct {
	AppEnv   string
	LogLevel string
	Port     string

	// DatabaseURL empty selects the in-memory store.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	PaymentGatewayURL string
	WalletGatewayURL  string
	PaymentGatewayKey string
	PaymentTimeout    time.Duration

	DefaultTaxRate  decimal.Decimal
	DeliveryBaseFee decimal.Decimal
	CartTTL         time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	VaultKey           string
	IdempotencyEnabled bool

	SweepInterval time.Duration
	RelayInterval time.Duration

	// MetricsAddr is where the worker serves /metrics.
	MetricsAddr string
}

// Load reads configuration. Malformed numeric values fall back to defaults,
// except for money values which are rejected.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("APP_PORT", "8080"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		PaymentGatewayURL:  os.Getenv("PAYMENT_GATEWAY_URL"),
		WalletGatewayURL:   os.Getenv("WALLET_GATEWAY_URL"),
		PaymentGatewayKey:  os.Getenv("PAYMENT_GATEWAY_KEY"),
		PaymentTimeout:     getEnvDuration("PAYMENT_TIMEOUT", 15*time.Second),
		CartTTL:            getEnvDuration("CART_TTL", 24*time.Hour),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "rxpos.transactions"),
		VaultKey:           os.Getenv("VAULT_KEY"),
		IdempotencyEnabled: getEnv("IDEMPOTENCY_ENABLED", "true") == "true",
		SweepInterval:      getEnvDuration("CART_SWEEP_INTERVAL", time.Minute),
		RelayInterval:      getEnvDuration("OUTBOX_RELAY_INTERVAL", time.Second),
		MetricsAddr:        getEnv("METRICS_ADDR", ":9091"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.DefaultTaxRate, err = getEnvDecimal("DEFAULT_TAX_RATE", decimal.Zero); err != nil {
		return Config{}, err
	}
	if cfg.DeliveryBaseFee, err = getEnvDecimal("DELIVERY_BASE_FEE", decimal.NewFromInt(50)); err != nil {
		return Config{}, err
	}
	if cfg.DefaultTaxRate.IsNegative() || cfg.DefaultTaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, errors.New("DEFAULT_TAX_RATE must be a fraction between 0 and 1")
	}
	if cfg.DeliveryBaseFee.IsNegative() {
		return Config{}, errors.New("DELIVERY_BASE_FEE must not be negative")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Address returns the HTTP listen address.
func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
