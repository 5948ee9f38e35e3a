// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rxpos/internal/core/apperror"
	appctx "rxpos/internal/core/context"
	"rxpos/internal/core/id"
	"rxpos/internal/core/idempotency"
	"rxpos/internal/infrastructure/http/v1/dto"
	"rxpos/internal/infrastructure/http/v1/middleware"
	"rxpos/pkg/logger"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the Gin context and aborts the request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseID parses the :name path parameter as an id.
func (h *BaseHandler) ParseID(c *gin.Context, name string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail(name, c.Param(name)))
		return id.ID{}, false
	}
	return parsed, true
}

// GetUserID extracts user ID from request context.
func (h *BaseHandler) GetUserID(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// GetPharmacyID extracts the caller's pharmacy from request context.
func (h *BaseHandler) GetPharmacyID(c *gin.Context) string {
	return appctx.GetPharmacyID(c.Request.Context())
}

// GetBranchID extracts the caller's branch, empty when the token has none.
func (h *BaseHandler) GetBranchID(c *gin.Context) string {
	return appctx.GetBranchID(c.Request.Context())
}

// Respond writes body as JSON with status and records it under the request's
// idempotency key: 2xx completes the key, anything else fails it.
func (h *BaseHandler) Respond(c *gin.Context, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	h.finishIdempotency(c, status, "application/json", raw)
	c.Data(status, "application/json; charset=utf-8", raw)
}

func (h *BaseHandler) finishIdempotency(c *gin.Context, status int, contentType string, raw []byte) {
	key := c.GetString(middleware.ContextIdempotencyKey)
	if key == "" {
		return
	}
	v, ok := c.Get(middleware.ContextIdempotencyStore)
	if !ok {
		return
	}
	store, ok := v.(idempotency.Store)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var err error
	if status >= 200 && status < 300 {
		err = store.CompleteKey(ctx, key, status, contentType, raw)
	} else {
		err = store.FailKey(ctx, key, status, contentType, raw)
	}
	if err != nil {
		logger.Warn(ctx, "idempotency result not recorded", "key", key, "status", status, "error", err)
	}
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.Respond(c, http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.Respond(c, http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	h.finishIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	h.Respond(c, http.StatusOK, dto.SuccessResponse{Success: true, Message: message})
}
