package handlers

import (
	"github.com/gin-gonic/gin"

	"rxpos/internal/core/apperror"
	appctx "rxpos/internal/core/context"
	"rxpos/internal/core/id"
	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/checkout"
	"rxpos/internal/domain/events"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/http/v1/dto"
)

// defaultHistoryLimit caps GET /transactions/:id/history.
const defaultHistoryLimit = 100

// TransactionHandler serves the transaction journal of the caller's pharmacy.
type TransactionHandler struct {
	*BaseHandler
	service  *transaction.Service
	checkout *checkout.Service
	history  audit.Reader
}

// NewTransactionHandler creates a new transaction handler. history may be nil.
func NewTransactionHandler(base *BaseHandler, service *transaction.Service, co *checkout.Service, history audit.Reader) *TransactionHandler {
	return &TransactionHandler{BaseHandler: base, service: service, checkout: co, history: history}
}

// List handles GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	var q dto.TransactionListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	res, err := h.service.List(c.Request.Context(), q.Filter(h.GetPharmacyID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromTransaction))
}

// Get handles GET /transactions/:id
//
// :id is either the internal UUID or the public transactionId (TXN-...).
func (h *TransactionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("id")

	var (
		t   *transaction.Transaction
		err error
	)
	if txID, parseErr := id.Parse(key); parseErr == nil {
		t, err = h.service.Get(ctx, txID)
	} else {
		t, err = h.service.GetByTransactionID(ctx, key)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	if !appctx.SamePharmacy(c.Request.Context(), t.OwnerRef) {
		h.Error(c, apperror.NewNotFound("transaction", key))
		return
	}
	h.OK(c, t)
}

// History handles GET /transactions/:id/history
func (h *TransactionHandler) History(c *gin.Context) {
	txID, ok := h.owned(c)
	if !ok {
		return
	}
	if h.history == nil {
		h.OK(c, []dto.AuditEntryResponse{})
		return
	}
	limit := h.ParseIntQuery(c, "limit", defaultHistoryLimit)
	entries, err := h.history.History(c.Request.Context(), events.AggregateTransaction, txID.String(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.FromAuditEntry(e))
	}
	h.OK(c, out)
}

// Refund handles POST /transactions/:id/refund
func (h *TransactionHandler) Refund(c *gin.Context) {
	txID, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.RefundRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.service.Refund(c.Request.Context(), txID, req.Domain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// UpdateDelivery handles PUT /transactions/:id/delivery
func (h *TransactionHandler) UpdateDelivery(c *gin.Context) {
	txID, ok := h.owned(c)
	if !ok {
		return
	}
	var req checkout.DeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.reply(c)(h.checkout.UpdateDeliveryOption(c.Request.Context(), txID, req))
}

// UpdateDeliveryStatus handles PUT /transactions/:id/delivery-status
func (h *TransactionHandler) UpdateDeliveryStatus(c *gin.Context) {
	txID, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.DeliveryStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.reply(c)(h.service.UpdateDeliveryStatus(c.Request.Context(), txID, req.Status))
}

// Cancel handles POST /transactions/:id/cancel
func (h *TransactionHandler) Cancel(c *gin.Context) {
	txID, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.CancelRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	h.reply(c)(h.service.Cancel(c.Request.Context(), txID, req.Reason))
}

// Hold handles POST /transactions/:id/hold
func (h *TransactionHandler) Hold(c *gin.Context) {
	txID, ok := h.owned(c)
	if !ok {
		return
	}
	h.reply(c)(h.service.Hold(c.Request.Context(), txID))
}

// owned parses :id and checks the transaction belongs to the caller's pharmacy.
func (h *TransactionHandler) owned(c *gin.Context) (id.ID, bool) {
	txID, ok := h.ParseID(c, "id")
	if !ok {
		return txID, false
	}
	t, err := h.service.Get(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return txID, false
	}
	if !appctx.SamePharmacy(c.Request.Context(), t.OwnerRef) {
		h.Error(c, apperror.NewNotFound("transaction", txID.String()))
		return txID, false
	}
	return txID, true
}

func (h *TransactionHandler) reply(c *gin.Context) func(*transaction.Transaction, error) {
	return func(out *transaction.Transaction, err error) {
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, out)
	}
}
