package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// CartIdentityKey holds the cart.Identity resolved for the request
const CartIdentityKey = "cart_identity"

// CartIdentity resolves who owns the request's cart: the authenticated user
// when Authenticate attached claims, plus the guest session cookie if the
// browser sent one. Run it after Authenticate.
func CartIdentity(cookie config.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity cart.Identity
		if userID, ok := GetUserUUID(c); ok {
			identity.UserID = &userID
		}

		if raw, err := c.Cookie(cookie.Name); err == nil {
			// session tokens are minted as UUIDs; anything else is ignored
			if _, err := uuid.Parse(raw); err == nil {
				identity.SessionID = raw
				ctx, _ := logger.WithCartSession(c.Request.Context(), logger.FromContext(c.Request.Context()), raw)
				c.Request = c.Request.WithContext(ctx)
			}
		}

		c.Set(CartIdentityKey, identity)
		c.Next()
	}
}

// GetCartIdentity returns the identity stored by CartIdentity
func GetCartIdentity(c *gin.Context) cart.Identity {
	if v, ok := c.Get(CartIdentityKey); ok {
		if identity, ok := v.(cart.Identity); ok {
			return identity
		}
	}
	return cart.Identity{}
}

// SetCartSessionCookie persists a guest session token in the browser. It is a
// no-op when the request already carried the same token.
func SetCartSessionCookie(c *gin.Context, cookie config.CookieConfig, sessionID string) {
	if sessionID == "" || GetCartIdentity(c).SessionID == sessionID {
		return
	}
	c.SetSameSite(sameSiteMode(cookie.SameSite))
	c.SetCookie(cookie.Name, sessionID, int(cookie.MaxAge.Seconds()), cookie.Path, cookie.Domain, cookie.Secure, true)
}

// ClearCartSessionCookie expires the guest session cookie
func ClearCartSessionCookie(c *gin.Context, cookie config.CookieConfig) {
	c.SetSameSite(sameSiteMode(cookie.SameSite))
	c.SetCookie(cookie.Name, "", -1, cookie.Path, cookie.Domain, cookie.Secure, true)
}

func sameSiteMode(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
