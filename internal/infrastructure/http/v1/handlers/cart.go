package handlers

import (
	"github.com/gin-gonic/gin"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/id"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/pricing"
	"rxpos/internal/infrastructure/http/v1/dto"
)

// CartHandler serves the caller's carts. A cart is visible only to the user
// who owns it.
type CartHandler struct {
	*BaseHandler
	service *cart.Service
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(base *BaseHandler, service *cart.Service) *CartHandler {
	return &CartHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the cart endpoints on rg.
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/active", h.Active)
	rg.POST("/items", h.AddItem)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id/items/:itemId", h.UpdateItem)
	rg.DELETE("/:id/items/:itemId", h.RemoveItem)
	rg.POST("/:id/clear", h.Clear)
	rg.PUT("/:id/discount", h.SetDiscount)
	rg.PUT("/:id/tax", h.SetTax)
	rg.PUT("/:id/customer", h.SetCustomer)
	rg.POST("/:id/abandon", h.Abandon)
}

// Active handles GET /carts/active
func (h *CartHandler) Active(c *gin.Context) {
	var q dto.ActiveCartQuery
	if !h.BindQuery(c, &q) {
		return
	}
	out, err := h.service.GetOrCreateActive(c.Request.Context(), h.GetUserID(c), pricing.TransactionType(q.TransactionType))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// AddItem handles POST /carts/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	out, err := h.service.AddItem(c.Request.Context(), cart.AddItemRequest{
		OwnerRef:        h.GetUserID(c),
		TransactionType: pricing.TransactionType(req.TransactionType),
		ProductRef:      req.ProductRef,
		Quantity:        req.Quantity,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// Get handles GET /carts/:id
func (h *CartHandler) Get(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	out, err := h.service.Get(c.Request.Context(), cartID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// UpdateItem handles PUT /carts/:id/items/:itemId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.reply(c)(h.service.UpdateItemQuantity(c.Request.Context(), cartID, c.Param("itemId"), req.Quantity))
}

// RemoveItem handles DELETE /carts/:id/items/:itemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	h.reply(c)(h.service.RemoveItem(c.Request.Context(), cartID, c.Param("itemId")))
}

// Clear handles POST /carts/:id/clear
func (h *CartHandler) Clear(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	h.reply(c)(h.service.Clear(c.Request.Context(), cartID))
}

// SetDiscount handles PUT /carts/:id/discount
func (h *CartHandler) SetDiscount(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.CartDiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.reply(c)(h.service.ApplyDiscount(c.Request.Context(), cartID, req.Discount()))
}

// SetTax handles PUT /carts/:id/tax
func (h *CartHandler) SetTax(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.CartTaxRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.reply(c)(h.service.SetTax(c.Request.Context(), cartID, req.Amount))
}

// SetCustomer handles PUT /carts/:id/customer
func (h *CartHandler) SetCustomer(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.CartCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.reply(c)(h.service.SetCustomer(c.Request.Context(), cartID, req.Customer()))
}

// Abandon handles POST /carts/:id/abandon
func (h *CartHandler) Abandon(c *gin.Context) {
	cartID, ok := h.owned(c)
	if !ok {
		return
	}
	h.reply(c)(h.service.Abandon(c.Request.Context(), cartID))
}

// owned parses :id and checks the cart belongs to the caller.
func (h *CartHandler) owned(c *gin.Context) (id.ID, bool) {
	cartID, ok := h.ParseID(c, "id")
	if !ok {
		return cartID, false
	}
	existing, err := h.service.Get(c.Request.Context(), cartID)
	if err != nil {
		h.Error(c, err)
		return cartID, false
	}
	if existing.OwnerRef != h.GetUserID(c) {
		h.Error(c, apperror.NewNotFound("cart", cartID.String()))
		return cartID, false
	}
	return cartID, true
}

func (h *CartHandler) reply(c *gin.Context) func(*cart.Cart, error) {
	return func(out *cart.Cart, err error) {
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, out)
	}
}
