// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidQuantity = "INVALID_QUANTITY"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Stock (422)
	CodeInsufficientStock = "INSUFFICIENT_STOCK"

	// Payment (402)
	CodePaymentFailed            = "PAYMENT_FAILED"
	CodePaymentTimeout           = "PAYMENT_TIMEOUT"
	CodeUnsupportedPaymentMethod = "UNSUPPORTED_PAYMENT_METHOD"

	// State violations (409/422)
	CodeEmptyCart              = "EMPTY_CART"
	CodeRefundNotAllowed       = "REFUND_NOT_ALLOWED"
	CodeInvalidTransition      = "INVALID_STATE_TRANSITION"
	CodeTransactionNotEditable = "TRANSACTION_NOT_EDITABLE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Identifier generation (500)
	CodeIDGeneration = "ID_GENERATION_FAILED"

	// Invariant violated on load (500)
	CodeConsistency = "CONSISTENCY_ERROR"

	// Authorization errors (401/403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Conflict (409)
	CodeConflict    = "CONFLICT"
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"
)

// Category groups error codes into the kinds callers branch on.
type Category string

const (
	CategoryValidation        Category = "validation"
	CategoryNotFound          Category = "not_found"
	CategoryInsufficientStock Category = "insufficient_stock"
	CategoryPaymentFailed     Category = "payment_failed"
	CategoryState             Category = "state"
	CategoryIDGeneration      Category = "id_generation"
	CategoryConsistency       Category = "consistency"
	CategoryInternal          Category = "internal"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidQuantity is returned when a line quantity is below one.
func NewInvalidQuantity(qty int) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    "quantity must be at least 1",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"quantity": qty},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(productRef, productName string, requested, available int) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("Insufficient stock for %s: %d available", productName, available),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id":   productRef,
			"product_name": productName,
			"requested":    requested,
			"available":    available,
		},
	}
}

// NewPaymentFailed wraps a gateway decline reason.
func NewPaymentFailed(method, reason string) *AppError {
	return &AppError{
		Code:       CodePaymentFailed,
		Message:    reason,
		HTTPStatus: http.StatusPaymentRequired,
		Details:    map[string]any{"method": method},
	}
}

// NewPaymentTimeout is returned when a gateway does not answer in time.
// Callers must not retry blindly: gateways are not idempotent.
func NewPaymentTimeout(method string) *AppError {
	return &AppError{
		Code:       CodePaymentTimeout,
		Message:    "Payment gateway did not respond in time",
		HTTPStatus: http.StatusGatewayTimeout,
		Details:    map[string]any{"method": method},
	}
}

// NewUnsupportedPaymentMethod creates an error for unknown payment types.
func NewUnsupportedPaymentMethod(method string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedPaymentMethod,
		Message:    fmt.Sprintf("Unsupported payment method: %s", method),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"method": method},
	}
}

// NewStateError creates a state violation error (422) with a specific code.
func NewStateError(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewEmptyCart is returned when checkout resolves no items.
func NewEmptyCart() *AppError {
	return NewStateError(CodeEmptyCart, "Cart is empty")
}

// NewRefundNotAllowed is returned when a transaction cannot be refunded.
func NewRefundNotAllowed(status string) *AppError {
	return NewStateError(CodeRefundNotAllowed, "Transaction cannot be refunded").
		WithDetail("status", status)
}

// NewInvalidTransition is returned for a state change outside the allowed table.
func NewInvalidTransition(from, to string) *AppError {
	return NewStateError(CodeInvalidTransition, fmt.Sprintf("Cannot change status from %s to %s", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewTransactionNotEditable is returned when a transaction is past draft/pending.
func NewTransactionNotEditable(status string) *AppError {
	return NewStateError(CodeTransactionNotEditable, "Transaction can no longer be edited").
		WithDetail("status", status)
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewIDGeneration is returned when every collision retry was used up.
func NewIDGeneration(prefix string, attempts int) *AppError {
	return &AppError{
		Code:       CodeIDGeneration,
		Message:    "Failed to generate a unique identifier",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"prefix": prefix, "attempts": attempts},
	}
}

// NewConsistency reports a stored document whose derived fields disagree with its lines.
func NewConsistency(entity string, message string) *AppError {
	return &AppError{
		Code:       CodeConsistency,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"entity": entity},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}

// CategoryOf maps an error to its taxonomy kind.
func CategoryOf(err error) Category {
	appErr, ok := AsAppError(err)
	if !ok {
		return CategoryInternal
	}
	switch appErr.Code {
	case CodeValidation, CodeInvalidQuantity:
		return CategoryValidation
	case CodeNotFound:
		return CategoryNotFound
	case CodeInsufficientStock:
		return CategoryInsufficientStock
	case CodePaymentFailed, CodePaymentTimeout, CodeUnsupportedPaymentMethod:
		return CategoryPaymentFailed
	case CodeEmptyCart, CodeRefundNotAllowed, CodeInvalidTransition,
		CodeTransactionNotEditable, CodeConcurrentModification, CodeConflict, CodeIdempotency:
		return CategoryState
	case CodeIDGeneration:
		return CategoryIDGeneration
	case CodeConsistency:
		return CategoryConsistency
	default:
		return CategoryInternal
	}
}
