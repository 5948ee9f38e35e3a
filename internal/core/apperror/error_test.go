package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"validation", NewValidation("bad"), CategoryValidation},
		{"invalid quantity", NewInvalidQuantity(0), CategoryValidation},
		{"not found", NewNotFound("product", "p1"), CategoryNotFound},
		{"stock", NewInsufficientStock("p1", "Amoxicillin", 2, 1), CategoryInsufficientStock},
		{"declined", NewPaymentFailed("card", "declined"), CategoryPaymentFailed},
		{"unsupported", NewUnsupportedPaymentMethod("barter"), CategoryPaymentFailed},
		{"refund", NewRefundNotAllowed("pending"), CategoryState},
		{"transition", NewInvalidTransition("delivered", "pending"), CategoryState},
		{"ids", NewIDGeneration("TXN", 3), CategoryIDGeneration},
		{"consistency", NewConsistency("cart", "mismatch"), CategoryConsistency},
		{"plain", errors.New("boom"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.err))
		})
	}
}

func TestAsAppError_ThroughWrapping(t *testing.T) {
	base := NewInsufficientStock("p1", "Paracetamol", 5, 1)
	wrapped := fmt.Errorf("checkout: %w", base)

	appErr, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 1, appErr.Details["available"])
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(wrapped))
}

func TestNewInternal_HidesCause(t *testing.T) {
	err := NewInternal(errors.New("pq: connection refused"))

	assert.Equal(t, "Internal server error", err.Message)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
}
