package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rxpos/internal/core/entity"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/domain/paymentmethod"
)

type auditedRow struct {
	entity.BaseDocument
	Ref      string `db:"ref"`
	Internal string `db:"-"`
	Scratch  string
}

func TestExtractDBColumns_Medicine(t *testing.T) {
	cols := ExtractDBColumns[catalog.Medicine]()

	assert.Equal(t, "ref", cols[0])
	for _, want := range []string{"name", "price", "cost_price", "quantity", "expiry_date", "updated_at"} {
		assert.Contains(t, cols, want)
	}
}

func TestExtractDBColumns_EmbeddedAndIgnored(t *testing.T) {
	cols := ExtractDBColumns[auditedRow]()

	assert.Equal(t, []string{"id", "version", "created_at", "updated_at", "created_by", "updated_by", "ref"}, cols)
	assert.NotContains(t, cols, "-")
}

func TestExtractDBColumns_NonStruct(t *testing.T) {
	assert.Nil(t, ExtractDBColumns[string]())
}

func TestStructToMap(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := paymentmethod.StoredMethod{
		Ref:         "PM-1",
		OwnerRef:    "PH-1",
		Type:        paymentmethod.TypeCard,
		Last4:       "1111",
		SealedToken: []byte{1, 2, 3},
		IsActive:    true,
		CreatedAt:   now,
	}

	got := StructToMap(&m)

	assert.Equal(t, "PM-1", got["ref"])
	assert.Equal(t, paymentmethod.TypeCard, got["type"])
	assert.Equal(t, []byte{1, 2, 3}, got["sealed_token"])
	assert.Equal(t, true, got["is_active"])
	assert.Equal(t, now, got["created_at"])
	assert.Len(t, got, len(ExtractDBColumns[paymentmethod.StoredMethod]()))
}

func TestStructToMap_FlattensEmbedded(t *testing.T) {
	row := auditedRow{
		BaseDocument: entity.BaseDocument{Version: 3, CreatedBy: "cashier-1"},
		Ref:          "R-1",
		Internal:     "hidden",
		Scratch:      "hidden",
	}

	got := StructToMap(row)

	assert.Equal(t, 3, got["version"])
	assert.Equal(t, "cashier-1", got["created_by"])
	assert.Equal(t, "R-1", got["ref"])
	assert.NotContains(t, got, "Internal")
	assert.Len(t, got, 7)
}

func TestStructToMap_NilAndNonStruct(t *testing.T) {
	var med *catalog.Medicine
	assert.Nil(t, StructToMap(med))
	assert.Nil(t, StructToMap(42))
}

func TestStructToMap_MoneyValues(t *testing.T) {
	cost := types.MustMoney("6.00")
	got := StructToMap(catalog.Medicine{Ref: "A", Price: types.MustMoney("10.00"), CostPrice: &cost})

	assert.True(t, types.MustMoney("10.00").Equal(got["price"].(types.Money)))
	assert.Equal(t, &cost, got["cost_price"])
}
