package handlers

import (
	"github.com/gin-gonic/gin"

	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/infrastructure/http/v1/dto"
)

// PaymentMethodHandler manages the stored payment methods of the caller's
// pharmacy. Responses only ever contain the masked view.
type PaymentMethodHandler struct {
	*BaseHandler
	service *paymentmethod.Service
}

// NewPaymentMethodHandler creates a new payment method handler.
func NewPaymentMethodHandler(base *BaseHandler, service *paymentmethod.Service) *PaymentMethodHandler {
	return &PaymentMethodHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the payment method endpoints on rg.
func (h *PaymentMethodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Register)
	rg.DELETE("/:ref", h.Deactivate)
	rg.POST("/:ref/verify", h.Verify)
}

// List handles GET /payment-methods
func (h *PaymentMethodHandler) List(c *gin.Context) {
	out, err := h.service.List(c.Request.Context(), h.GetPharmacyID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	if out == nil {
		out = []*paymentmethod.Masked{}
	}
	h.OK(c, out)
}

// Register handles POST /payment-methods
func (h *PaymentMethodHandler) Register(c *gin.Context) {
	var req dto.RegisterPaymentMethodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	out, err := h.service.Register(c.Request.Context(), req.Domain(h.GetPharmacyID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, out)
}

// Deactivate handles DELETE /payment-methods/:ref
func (h *PaymentMethodHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), h.GetPharmacyID(c), c.Param("ref")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Verify handles POST /payment-methods/:ref/verify
func (h *PaymentMethodHandler) Verify(c *gin.Context) {
	var req dto.VerifyAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ok, err := h.service.VerifyAccount(c.Request.Context(), h.GetPharmacyID(c), c.Param("ref"), req.AccountNumber)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.VerifyAccountResponse{Valid: ok})
}
