package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"APP_PORT", "PAYMENT_TIMEOUT", "DEFAULT_TAX_RATE", "DELIVERY_BASE_FEE",
		"CART_TTL", "KAFKA_BROKERS", "JWT_SECRET", "DATABASE_URL",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 15*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 24*time.Hour, cfg.CartTTL)
	assert.True(t, cfg.DefaultTaxRate.IsZero())
	assert.True(t, decimal.NewFromInt(50).Equal(cfg.DeliveryBaseFee))
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.JWTSecret, "no weak default secret")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAYMENT_TIMEOUT", "3s")
	t.Setenv("DEFAULT_TAX_RATE", "0.12")
	t.Setenv("DELIVERY_BASE_FEE", "35.50")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, "0.12", cfg.DefaultTaxRate.String())
	assert.Equal(t, "35.5", cfg.DeliveryBaseFee.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoad_RejectsBadMoney(t *testing.T) {
	t.Setenv("DELIVERY_BASE_FEE", "fifty")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DELIVERY_BASE_FEE", "")
	t.Setenv("DEFAULT_TAX_RATE", "12")
	_, err = Load()
	require.Error(t, err)
}
