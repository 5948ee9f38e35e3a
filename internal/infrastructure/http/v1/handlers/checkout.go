package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rxpos/internal/core/apperror"
	"rxpos/internal/domain/checkout"
)

// CheckoutHandler turns carts and item lists into transactions.
type CheckoutHandler struct {
	*BaseHandler
	service *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(base *BaseHandler, service *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{BaseHandler: base, service: service}
}

// Checkout handles POST /checkout
//
// The body is checkout.Request; pharmacyRef and branchRef default to the
// caller's token, and only the caller's own cart can be checked out. The response is always a checkout.Result, with the HTTP
// status of the underlying error on failure.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkout.Request
	if !h.BindJSON(c, &req) {
		return
	}

	pharmacy := h.GetPharmacyID(c)
	if req.PharmacyRef == "" {
		req.PharmacyRef = pharmacy
	}
	if req.PharmacyRef != pharmacy {
		h.Error(c, apperror.NewForbidden("cannot check out for another pharmacy").
			WithDetail("pharmacyRef", req.PharmacyRef))
		return
	}
	if req.BranchRef == "" {
		req.BranchRef = h.GetBranchID(c)
	}
	req.UserRef = h.GetUserID(c)

	t, err := h.service.Checkout(c.Request.Context(), req)
	result := checkout.ToResult(t, err)
	if err != nil {
		h.Respond(c, apperror.GetHTTPStatus(err), result)
		return
	}
	h.Respond(c, http.StatusCreated, result)
}
