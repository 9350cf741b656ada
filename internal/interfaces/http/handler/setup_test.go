package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	couponapp "github.com/storefront/backend/internal/application/coupon"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testCookie = config.CookieConfig{
	Name:     "cart_session_id",
	Path:     "/",
	MaxAge:   7 * 24 * time.Hour,
	SameSite: "lax",
}

type testServer struct {
	engine    *gin.Engine
	db        *gorm.DB
	products  *persistence.GormProductRepository
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
}

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ProductModel{},
		&models.VariantModel{},
		&models.CartModel{},
		&models.CartItemModel{},
		&models.CouponModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
	))
	return db
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	db := setupHandlerDB(t)

	products := persistence.NewGormProductRepository(db)
	carts := persistence.NewGormCartRepository(db)
	coupons := persistence.NewGormCouponRepository(db)
	orders := persistence.NewGormOrderRepository(db)
	clock := shared.SystemClock{}

	cartService := cartapp.NewCartService(carts, products, products, coupons, clock, log)
	orderService := orderapp.NewOrderService(orders, persistence.NewGormTransactionScope(db), clock, log)
	orderService.SetIdempotencyStore(cache.NewInMemoryIdempotencyStore(), shared.IdempotencyConfig{Enabled: true, TTL: time.Hour})
	couponService := couponapp.NewCouponService(coupons, clock, log)

	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "handler-test-secret", Issuer: "storefront-test"})
	blacklist := auth.NewInMemoryTokenBlacklist()

	cartHandler := NewCartHandler(cartService, orderService, testCookie)
	orderHandler := NewOrderHandler(orderService)
	couponHandler := NewCouponHandler(couponService)
	authHandler := NewAuthHandler(blacklist)
	healthHandler := NewHealthHandler(db)

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Authenticate(middleware.JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: blacklist, Logger: log}),
		middleware.CartIdentity(testCookie),
	)
	requireAuth := middleware.RequireAuth()
	engine.GET("/health", healthHandler.Check)

	api := engine.Group("/api/v1")
	cartGroup := api.Group("/cart")
	cartGroup.GET("", cartHandler.GetCart)
	cartGroup.DELETE("", cartHandler.Clear)
	cartGroup.POST("/items", cartHandler.AddItem)
	cartGroup.PUT("/items/:itemId", cartHandler.UpdateItem)
	cartGroup.DELETE("/items/:itemId", cartHandler.RemoveItem)
	cartGroup.POST("/coupon", cartHandler.ApplyCoupon)
	cartGroup.DELETE("/coupon", cartHandler.RemoveCoupon)
	cartGroup.POST("/checkout", requireAuth, cartHandler.Checkout)

	orderGroup := api.Group("/orders", requireAuth)
	orderGroup.GET("", orderHandler.List)
	orderGroup.POST("", orderHandler.Create)
	orderGroup.GET("/:id", orderHandler.Get)
	orderGroup.PUT("/:id", orderHandler.Update)
	orderGroup.DELETE("/:id", orderHandler.Delete)
	orderGroup.GET("/:id/items", orderHandler.ListItems)
	orderGroup.POST("/:id/items", orderHandler.AddItem)
	orderGroup.DELETE("/:id/items/:itemId", orderHandler.RemoveItem)
	orderGroup.POST("/:id/recalculate", orderHandler.Recalculate)

	couponGroup := api.Group("/coupons")
	couponGroup.GET("", couponHandler.List)
	couponGroup.GET("/:id", couponHandler.Get)
	couponGroup.POST("/validate", couponHandler.Validate)
	couponGroup.POST("", requireAuth, couponHandler.Create)
	couponGroup.PUT("/:id", requireAuth, couponHandler.Update)
	couponGroup.DELETE("/:id", requireAuth, couponHandler.Delete)
	couponGroup.POST("/:id/redeem", requireAuth, couponHandler.Redeem)

	api.POST("/auth/logout", requireAuth, authHandler.Logout)

	return &testServer{
		engine:    engine,
		db:        db,
		products:  products,
		jwt:       jwtService,
		blacklist: blacklist,
	}
}

func (s *testServer) seedProduct(t *testing.T, sku, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Product "+sku, valueobject.MustMoney(price), stock)
	require.NoError(t, err)
	require.NoError(t, s.products.Save(context.Background(), p))
	return p
}

func (s *testServer) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := s.jwt.IssueAccessToken(userID, "shopper", time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	n, err := s.products.AvailableStock(context.Background(), productID, nil)
	require.NoError(t, err)
	return n
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
}

func withSession(sessionID string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: testCookie.Name, Value: sessionID})
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// envelope decodes the response and unmarshals data into out when non-nil
func envelope(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
		Meta    *dto.Meta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return dto.Response{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}
}

func sessionCookie(w *httptest.ResponseRecorder) string {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie.Name {
			return c.Value
		}
	}
	return ""
}
