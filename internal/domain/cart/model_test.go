package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/pricing"
)

func money(s string) types.Money { return types.MustMoney(s) }

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func line(t *testing.T, ref, price string, qty int) pricing.LineItem {
	t.Helper()
	li, err := pricing.NewLineItem(pricing.Product{Ref: ref, Name: ref, Price: money(price)}, qty, now)
	require.NoError(t, err)
	return li
}

func sampleCart(t *testing.T) *Cart {
	t.Helper()
	c := New("cashier-1", pricing.TypeSale, now, DefaultTTL)
	require.NoError(t, c.AddItem(line(t, "A", "10.00", 2)))
	require.NoError(t, c.AddItem(line(t, "B", "5.00", 1)))
	return c
}

func TestCart_Totals(t *testing.T) {
	c := sampleCart(t)

	assert.True(t, money("25.00").Equal(c.TotalAmount))
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, 3, c.TotalQuantity)
	assert.True(t, money("25.00").Equal(c.FinalAmount))
	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, now.Add(24*time.Hour), c.ExpiresAt)
}

func TestCart_PercentageDiscount(t *testing.T) {
	c := sampleCart(t)

	require.NoError(t, c.ApplyDiscount(pricing.Discount{Amount: money("10"), Type: pricing.DiscountPercentage}))
	assert.True(t, money("2.50").Equal(c.DiscountValue()))
	assert.True(t, money("22.50").Equal(c.FinalAmount))

	require.NoError(t, c.SetTax(money("1.25")))
	assert.True(t, money("23.75").Equal(c.FinalAmount))
}

func TestCart_AddItemMerges(t *testing.T) {
	c := sampleCart(t)

	require.NoError(t, c.AddItem(line(t, "A", "10.00", 3)))
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, 5, c.QuantityOf("A"))
	assert.True(t, money("55.00").Equal(c.TotalAmount))
}

func TestCart_UpdateItemQuantityZero(t *testing.T) {
	c := sampleCart(t)
	itemID := c.Items[0].ItemID

	err := c.UpdateItemQuantity(itemID, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.True(t, money("25.00").Equal(c.TotalAmount))

	require.NoError(t, c.UpdateItemQuantity(itemID, 4))
	assert.True(t, money("45.00").Equal(c.TotalAmount))
	assert.Equal(t, 5, c.TotalQuantity)
}

func TestCart_RemoveItem(t *testing.T) {
	c := sampleCart(t)

	err := c.RemoveItem("missing")
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, c.RemoveItem(c.Items[0].ItemID))
	assert.Equal(t, 1, c.TotalItems)
	assert.True(t, money("5.00").Equal(c.TotalAmount))
}

func TestCart_ClosedCartRejectsChanges(t *testing.T) {
	c := sampleCart(t)
	require.NoError(t, c.Complete("cash"))
	assert.Equal(t, "cash", c.PaymentMethod)

	assert.True(t, apperror.HasCode(c.AddItem(line(t, "C", "1.00", 1)), apperror.CodeInvalidTransition))
	assert.True(t, apperror.HasCode(c.Abandon(), apperror.CodeInvalidTransition))
	assert.True(t, apperror.HasCode(c.Complete("card"), apperror.CodeInvalidTransition))
}

func TestCart_ClearCloses(t *testing.T) {
	c := sampleCart(t)
	c.Clear()

	assert.Empty(t, c.Items)
	assert.True(t, c.TotalAmount.IsZero())
	assert.Equal(t, StatusCompleted, c.Status)
}

func TestCart_VerifyConsistency(t *testing.T) {
	c := sampleCart(t)
	require.NoError(t, c.VerifyConsistency())

	c.Items[1].TotalPrice = money("6.00")
	assert.True(t, apperror.HasCode(c.VerifyConsistency(), apperror.CodeConsistency))
}

func TestCart_IsExpired(t *testing.T) {
	c := sampleCart(t)
	assert.False(t, c.IsExpired(now.Add(23*time.Hour)))
	assert.True(t, c.IsExpired(now.Add(25*time.Hour)))
}
