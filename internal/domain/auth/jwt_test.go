package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "rxpos/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expires, err := svc.GenerateAccessToken(appctx.UserContext{
		UserID:     "cashier-1",
		Email:      "c1@example.com",
		Roles:      []string{"cashier"},
		PharmacyID: "pharm-1",
		BranchID:   "branch-a",
	})
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cashier-1", user.UserID)
	assert.Equal(t, "pharm-1", user.PharmacyID)
	assert.Equal(t, "branch-a", user.BranchID)
	assert.Equal(t, []string{"cashier"}, user.Roles)
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("one"))
	validator := NewJWTService(DefaultJWTConfig("two"))

	token, _, err := issuer.GenerateAccessToken(appctx.UserContext{UserID: "u", PharmacyID: "p"})
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken(appctx.UserContext{UserID: "u", PharmacyID: "p"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RequiresUserID(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, _, err := svc.GenerateAccessToken(appctx.UserContext{PharmacyID: "p"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrMissingSubject)
}
