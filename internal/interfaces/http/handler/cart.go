package handler

import (
	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartHandler handles the shopper's cart. Guests are tracked by the cart
// session cookie, signed-in shoppers by their user id.
type CartHandler struct {
	BaseHandler
	cartService  *cartapp.CartService
	orderService *orderapp.OrderService
	cookie       config.CookieConfig
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *cartapp.CartService, orderService *orderapp.OrderService, cookie config.CookieConfig) *CartHandler {
	return &CartHandler{
		cartService:  cartService,
		orderService: orderService,
		cookie:       cookie,
	}
}

// GetCart returns the caller's active cart, creating it on first visit
// GET /api/v1/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	resp, err := h.cartService.GetOrCreateCart(c.Request.Context(), middleware.GetCartIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respond(c, resp)
}

// AddItem adds a product to the cart
// POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartapp.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.cartService.AddItem(c.Request.Context(), middleware.GetCartIdentity(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respond(c, resp)
}

// UpdateItem sets a line's quantity; zero removes the line
// PUT /api/v1/cart/items/:itemId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	lineID, ok := h.uuidParam(c, "itemId")
	if !ok {
		return
	}
	var req cartapp.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.cartService.UpdateItemQuantity(c.Request.Context(), middleware.GetCartIdentity(c), lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respond(c, resp)
}

// RemoveItem deletes a line from the cart
// DELETE /api/v1/cart/items/:itemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	lineID, ok := h.uuidParam(c, "itemId")
	if !ok {
		return
	}

	resp, err := h.cartService.RemoveItem(c.Request.Context(), middleware.GetCartIdentity(c), lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respond(c, resp)
}

// Clear empties the cart
// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *gin.Context) {
	resp, err := h.cartService.Clear(c.Request.Context(), middleware.GetCartIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respond(c, resp)
}

// ApplyCoupon attaches a coupon code and previews its discount
// POST /api/v1/cart/coupon
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	var req cartapp.ApplyCouponRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.cartService.ApplyCoupon(c.Request.Context(), middleware.GetCartIdentity(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respond(c, resp)
}

// RemoveCoupon detaches the cart's coupon
// DELETE /api/v1/cart/coupon
func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	resp, err := h.cartService.RemoveCoupon(c.Request.Context(), middleware.GetCartIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respond(c, resp)
}

// Checkout places an order from the cart
// POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	var req orderapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	resp, err := h.orderService.Checkout(c.Request.Context(), middleware.GetCartIdentity(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// respond writes the cart and hands a guest its session cookie
func (h *CartHandler) respond(c *gin.Context, resp *cartapp.CartResponse) {
	if resp.UserID == nil {
		middleware.SetCartSessionCookie(c, h.cookie, resp.SessionID)
	}
	h.Success(c, resp)
}
