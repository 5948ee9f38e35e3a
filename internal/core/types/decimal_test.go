package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoneyHelpers(t *testing.T) {
	assert.True(t, MustMoney("25.00").Equal(Times(MustMoney("12.50"), 2)))
	assert.True(t, MustMoney("2.50").Equal(Percent(MustMoney("25"), MustMoney("10"))))
	assert.True(t, Zero().Equal(Ratio(MustMoney("5"), Zero())))
	assert.True(t, MustMoney("20").Equal(Ratio(MustMoney("5"), MustMoney("25"))))
	assert.True(t, Zero().Equal(NonNegative(MustMoney("-3.10"))))
	assert.True(t, MustMoney("40").Equal(Min(MustMoney("60"), MustMoney("40"))))
	assert.Equal(t, "1.01", Round(MustMoney("1.005")).StringFixed(2))
}
