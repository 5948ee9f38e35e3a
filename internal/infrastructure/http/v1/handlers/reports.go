package handlers

import (
	"github.com/gin-gonic/gin"

	"rxpos/internal/domain/reports"
	"rxpos/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Sales handles GET /reports/sales
func (h *ReportsHandler) Sales(c *gin.Context) {
	var q dto.SalesReportQuery
	if !h.BindQuery(c, &q) {
		return
	}

	report, err := h.service.Sales(c.Request.Context(), q.Filter(h.GetPharmacyID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// TopProducts handles GET /reports/top-products
func (h *ReportsHandler) TopProducts(c *gin.Context) {
	var q dto.TopProductsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	rows, err := h.service.TopProducts(c.Request.Context(), q.Filter(h.GetPharmacyID(c)), q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if rows == nil {
		rows = []reports.ProductSales{}
	}
	h.OK(c, rows)
}
