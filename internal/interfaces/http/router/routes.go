package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// Handlers are the storefront's HTTP handlers
type Handlers struct {
	Cart   *handler.CartHandler
	Order  *handler.OrderHandler
	Coupon *handler.CouponHandler
	Auth   *handler.AuthHandler
}

// StorefrontGroups builds the /api/v1 route groups. requireAuth guards the
// routes that need a signed-in user; cart routes accept guests.
func StorefrontGroups(h Handlers, requireAuth gin.HandlerFunc) []RouteRegistrar {
	cart := NewDomainGroup("cart", "/cart").
		GET("", h.Cart.GetCart).
		DELETE("", h.Cart.Clear).
		POST("/items", h.Cart.AddItem).
		PUT("/items/:itemId", h.Cart.UpdateItem).
		DELETE("/items/:itemId", h.Cart.RemoveItem).
		POST("/coupon", h.Cart.ApplyCoupon).
		DELETE("/coupon", h.Cart.RemoveCoupon).
		POST("/checkout", requireAuth, h.Cart.Checkout)

	orders := NewDomainGroup("orders", "/orders").Use(requireAuth).
		GET("", h.Order.List).
		POST("", h.Order.Create).
		GET("/:id", h.Order.Get).
		PUT("/:id", h.Order.Update).
		DELETE("/:id", h.Order.Delete).
		GET("/:id/items", h.Order.ListItems).
		POST("/:id/items", h.Order.AddItem).
		DELETE("/:id/items/:itemId", h.Order.RemoveItem).
		POST("/:id/recalculate", h.Order.Recalculate)

	coupons := NewDomainGroup("coupons", "/coupons").
		GET("", h.Coupon.List).
		GET("/:id", h.Coupon.Get).
		POST("/validate", h.Coupon.Validate)
	coupons.Group("coupon-admin", "").Use(requireAuth).
		POST("", h.Coupon.Create).
		PUT("/:id", h.Coupon.Update).
		DELETE("/:id", h.Coupon.Delete).
		POST("/:id/redeem", h.Coupon.Redeem)

	authGroup := NewDomainGroup("auth", "/auth").
		POST("/logout", requireAuth, h.Auth.Logout)

	return []RouteRegistrar{cart, orders, coupons, authGroup}
}
