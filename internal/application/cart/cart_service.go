package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CartService resolves the caller's cart and applies stock-checked mutations to it
type CartService struct {
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	stock       catalog.StockOracle
	couponRepo  coupon.Repository
	clock       shared.Clock
	logger      *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(
	cartRepo cart.Repository,
	productRepo catalog.ProductRepository,
	stock catalog.StockOracle,
	couponRepo coupon.Repository,
	clock shared.Clock,
	logger *zap.Logger,
) *CartService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		stock:       stock,
		couponRepo:  couponRepo,
		clock:       clock,
		logger:      logger,
	}
}

// ResolveIdentity returns identity unchanged when it names a user or a
// session; otherwise it mints a new session token.
func ResolveIdentity(identity cart.Identity) cart.Identity {
	if identity.IsAuthenticated() {
		return cart.Identity{UserID: identity.UserID, SessionID: identity.SessionID}
	}
	if identity.SessionID == "" {
		identity.SessionID = uuid.NewString()
	}
	return identity
}

// GetOrCreateCart returns the caller's active cart, creating it when absent.
// The response carries the session id the caller must persist.
func (s *CartService) GetOrCreateCart(ctx context.Context, identity cart.Identity) (*CartResponse, error) {
	c, err := s.loadOrCreate(ctx, ResolveIdentity(identity))
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, c), nil
}

// GetCart returns the caller's active cart without creating one
func (s *CartService) GetCart(ctx context.Context, identity cart.Identity) (*CartResponse, error) {
	c, err := s.findActive(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, c), nil
}

// AddItem adds a product (or variant) to the caller's cart after checking
// that stock covers the line's resulting quantity.
func (s *CartService) AddItem(ctx context.Context, identity cart.Identity, req AddItemRequest) (_ *CartResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "add_item",
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrQuantity, req.Quantity,
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if req.Quantity < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be at least 1")
	}

	c, err := s.loadOrCreate(ctx, ResolveIdentity(identity))
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Product is not available for sale")
	}

	var variant *catalog.Variant
	if req.VariantID != nil {
		variant, err = s.productRepo.FindVariant(ctx, product.ID, *req.VariantID)
		if err != nil {
			return nil, err
		}
	}

	wanted := req.Quantity
	for i := range c.Lines {
		l := &c.Lines[i]
		if l.ProductID == product.ID && sameVariant(l.VariantID, req.VariantID) {
			wanted += l.Quantity
			break
		}
	}
	if err := s.ensureStock(ctx, product, req.VariantID, wanted); err != nil {
		return nil, err
	}

	if _, err := c.AddItem(product, variant, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Debug("cart item added",
		zap.String("cart_id", c.ID.String()),
		zap.String("product_id", product.ID.String()),
		zap.Int("quantity", req.Quantity),
	)
	return s.respond(ctx, c), nil
}

// UpdateItemQuantity sets a line's quantity, checking stock when it stays
// positive. A quantity of zero or less removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, identity cart.Identity, lineID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	c, err := s.findActive(ctx, identity)
	if err != nil {
		return nil, err
	}

	line := c.FindLine(lineID)
	if line == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Cart item not found")
	}
	if req.Quantity > 0 {
		product, err := s.productRepo.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if err := s.ensureStock(ctx, product, line.VariantID, req.Quantity); err != nil {
			return nil, err
		}
	}

	if _, _, err := c.UpdateItemQuantity(lineID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c), nil
}

// RemoveItem deletes a line from the caller's cart
func (s *CartService) RemoveItem(ctx context.Context, identity cart.Identity, lineID uuid.UUID) (*CartResponse, error) {
	c, err := s.findActive(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(lineID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c), nil
}

// Clear removes every line from the caller's cart in one write
func (s *CartService) Clear(ctx context.Context, identity cart.Identity) (*CartResponse, error) {
	c, err := s.findActive(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := c.Clear(); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c), nil
}

// ApplyCoupon attaches a currently valid coupon code to the cart. The
// discount is only previewed; it is applied when the cart is checked out.
func (s *CartService) ApplyCoupon(ctx context.Context, identity cart.Identity, req ApplyCouponRequest) (*CartResponse, error) {
	c, err := s.findActive(ctx, identity)
	if err != nil {
		return nil, err
	}

	cp, err := s.couponRepo.FindByCode(ctx, coupon.NormalizeCode(req.Code))
	if err != nil {
		return nil, err
	}
	if err := cp.Validate(s.clock.Now()); err != nil {
		return nil, err
	}

	if err := c.AttachCoupon(cp.Code); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c), nil
}

// RemoveCoupon detaches the cart's coupon code
func (s *CartService) RemoveCoupon(ctx context.Context, identity cart.Identity) (*CartResponse, error) {
	c, err := s.findActive(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := c.DetachCoupon(); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c), nil
}

func (s *CartService) findActive(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	if identity.IsZero() {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Cart not found")
	}
	c, err := s.cartRepo.FindActive(ctx, identity)
	if err != nil {
		return nil, err
	}
	if c.IsExpired(s.clock.Now()) {
		if err := s.abandon(ctx, c); err != nil {
			return nil, err
		}
		return nil, shared.NewDomainError(shared.CodeNotFound, "Cart not found")
	}
	return c, nil
}

func (s *CartService) loadOrCreate(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	c, err := s.findActive(ctx, identity)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	fresh, err := cart.NewCart(identity, s.clock.Now())
	if err != nil {
		return nil, err
	}
	c, err = s.cartRepo.CreateIfAbsent(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if c.ID == fresh.ID {
		s.logger.Debug("cart created", zap.String("cart_id", c.ID.String()), zap.Bool("authenticated", identity.IsAuthenticated()))
		return c, nil
	}
	// the row that won is another request's; it may be an expired cart nobody retired
	if c.IsExpired(s.clock.Now()) {
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict, "Cart expired while being replaced, please retry")
	}
	return c, nil
}

// abandon retires an expired cart found on the request path. The expired
// row still holds the active-cart slot until this succeeds.
func (s *CartService) abandon(ctx context.Context, c *cart.Cart) error {
	if c.MarkAbandoned() != nil {
		// already retired
		return nil
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		s.logger.Warn("failed to abandon expired cart", zap.String("cart_id", c.ID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (s *CartService) ensureStock(ctx context.Context, product *catalog.Product, variantID *uuid.UUID, quantity int) error {
	available, err := s.stock.AvailableStock(ctx, product.ID, variantID)
	if err != nil {
		return err
	}
	if available < quantity {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient stock for %s: requested %d, available %d", product.Name, quantity, available))
	}
	return nil
}

// respond builds the cart response, previewing an attached coupon against
// the subtotal. A coupon that has disappeared previews as invalid.
func (s *CartService) respond(ctx context.Context, c *cart.Cart) *CartResponse {
	response := ToCartResponse(c)
	code := c.CouponCode()
	if code == "" || s.couponRepo == nil {
		return &response
	}

	subtotal := c.Subtotal()
	preview := &CouponPreview{Code: code, Discount: valueobject.Zero(), FinalTotal: subtotal}
	now := s.clock.Now()
	cp, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		preview.Message = "Coupon is no longer available"
	} else if verr := cp.Validate(now); verr != nil {
		preview.Message = verr.Error()
	} else {
		preview.Valid = true
		preview.Discount = cp.CalculateDiscount(subtotal, now)
		preview.FinalTotal = subtotal.Subtract(preview.Discount).Rounded()
		if !cp.MeetsMinimum(subtotal) {
			preview.Message = fmt.Sprintf("Order total is below the minimum of %s", cp.MinOrderValue.String())
		}
	}
	response.Coupon = preview
	return &response
}

func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
