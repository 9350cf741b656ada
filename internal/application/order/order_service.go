package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderService places and maintains orders. Every write runs inside one
// transaction covering stock, coupon usage and the order rows.
type OrderService struct {
	orderRepo      order.Repository
	txScope        TransactionScope
	clock          shared.Clock
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo order.Repository, txScope TransactionScope, clock shared.Clock, logger *zap.Logger) *OrderService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo: orderRepo,
		txScope:   txScope,
		clock:     clock,
		logger:    logger,
	}
}

// SetEventPublisher sets the publisher that receives order events after commit
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables Idempotency-Key replay protection for order placement
func (s *OrderService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idempotencyCfg = cfg
}

// CreateOrder places an order for userID. Stock for every line is taken with
// a guarded decrement and the coupon, when valid, is redeemed atomically;
// any failure rolls back the whole order.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (_ *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create", telemetry.SpanAttrQuantity, len(req.Items))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if len(req.Items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must contain at least one item")
	}

	release, err := s.claim(ctx, "order:create", userID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var placed *order.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := order.NewOrder(userID, req.ShippingAddress, req.BillingAddress, req.PaymentMethod)
		if err != nil {
			return err
		}
		for _, item := range req.Items {
			if err := s.reserveLine(ctx, repos, o, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		if req.CouponCode != "" {
			if err := s.applyCoupon(ctx, repos, o, req.CouponCode); err != nil {
				return err
			}
		}
		o.RecalculateTotal()
		o.Place()
		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		release()
		return nil, transactionError(err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderNumber, placed.OrderNumber,
		telemetry.SpanAttrAmount, placed.Total.String(),
	)
	s.logger.Info("order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("order_number", placed.OrderNumber),
		zap.String("total", placed.Total.String()),
	)
	s.publish(ctx, placed)
	response := ToOrderResponse(placed)
	return &response, nil
}

// Checkout places an order from the caller's active cart and marks the cart
// converted in the same transaction. The cart's coupon is used unless the
// request names another.
func (s *OrderService) Checkout(ctx context.Context, identity cart.Identity, req CheckoutRequest) (_ *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "checkout")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !identity.IsAuthenticated() {
		return nil, shared.NewDomainError(shared.CodeUnauthorized, "Checkout requires an authenticated user")
	}
	userID := *identity.UserID

	release, err := s.claim(ctx, "order:checkout", userID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var placed *order.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := findCheckoutCart(ctx, repos.CartRepo(), identity)
		if err != nil {
			return err
		}
		if c.IsExpired(s.clock.Now()) {
			return shared.NewDomainError(shared.CodeInvalidState, "Cart has expired")
		}
		if c.IsEmpty() {
			return shared.NewDomainError(shared.CodeInvalidState, "Cart is empty")
		}

		o, err := order.NewOrder(userID, req.ShippingAddress, req.BillingAddress, req.PaymentMethod)
		if err != nil {
			return err
		}
		cartID := c.ID
		o.CartID = &cartID
		for _, l := range c.Lines {
			if err := s.reserveLine(ctx, repos, o, l.ProductID, l.VariantID, l.Quantity); err != nil {
				return err
			}
		}

		code := c.CouponCode()
		if req.CouponCode != nil {
			code = *req.CouponCode
		}
		if code != "" {
			if err := s.applyCoupon(ctx, repos, o, code); err != nil {
				return err
			}
		}
		o.RecalculateTotal()
		o.Place()
		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}

		if err := c.MarkConverted(); err != nil {
			return err
		}
		if err := repos.CartRepo().Save(ctx, c); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		release()
		return nil, transactionError(err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderNumber, placed.OrderNumber,
		telemetry.SpanAttrCartID, placed.CartID.String(),
		telemetry.SpanAttrAmount, placed.Total.String(),
	)
	s.logger.Info("cart checked out",
		zap.String("order_id", placed.ID.String()),
		zap.String("cart_id", placed.CartID.String()),
		zap.String("total", placed.Total.String()),
	)
	s.publish(ctx, placed)
	response := ToOrderResponse(placed)
	return &response, nil
}

// AddItem adds a line to a pending order, taking its stock
func (s *OrderService) AddItem(ctx context.Context, userID, orderID uuid.UUID, req AddOrderItemRequest) (*OrderResponse, error) {
	return s.mutate(ctx, userID, orderID, func(repos TransactionalRepositories, o *order.Order) error {
		if !o.IsPending() {
			return shared.NewDomainError(shared.CodeInvalidState, "Can only add items to pending orders")
		}
		return s.reserveLine(ctx, repos, o, req.ProductID, req.VariantID, req.Quantity)
	})
}

// RemoveItem deletes a line from a pending order and restores its stock
func (s *OrderService) RemoveItem(ctx context.Context, userID, orderID, lineID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, userID, orderID, func(repos TransactionalRepositories, o *order.Order) error {
		line, err := o.RemoveLine(lineID)
		if err != nil {
			return err
		}
		return repos.StockRepo().AdjustStock(ctx, line.ProductID, line.VariantID, line.Quantity)
	})
}

// RecalculateTotal recomputes an order's totals from its lines
func (s *OrderService) RecalculateTotal(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, userID, orderID, func(_ TransactionalRepositories, o *order.Order) error {
		o.RecalculateTotal()
		return nil
	})
}

// UpdateOrder changes status, payment status and addresses. Status changes
// follow the order state machine; cancelling restores stock for every line.
func (s *OrderService) UpdateOrder(ctx context.Context, userID, orderID uuid.UUID, req UpdateOrderRequest) (*OrderResponse, error) {
	return s.mutate(ctx, userID, orderID, func(repos TransactionalRepositories, o *order.Order) error {
		if req.ShippingAddress != nil || req.BillingAddress != nil {
			var shipping, billing string
			if req.ShippingAddress != nil {
				shipping = *req.ShippingAddress
			}
			if req.BillingAddress != nil {
				billing = *req.BillingAddress
			}
			if err := o.UpdateAddresses(shipping, billing); err != nil {
				return err
			}
		}
		if req.PaymentStatus != nil {
			if err := o.UpdatePaymentStatus(order.PaymentStatus(*req.PaymentStatus)); err != nil {
				return err
			}
		}
		if req.Status != nil {
			wasCancelled := o.Status == order.StatusCancelled
			if err := o.UpdateStatus(order.Status(*req.Status)); err != nil {
				return err
			}
			if !wasCancelled && o.Status == order.StatusCancelled {
				if err := restoreStock(ctx, repos.StockRepo(), o.Lines); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// DeleteOrder restores the stock of every line of a pending order, then deletes it
func (s *OrderService) DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	var deleted *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := loadOwned(ctx, repos.OrderRepo(), userID, orderID)
		if err != nil {
			return err
		}
		if err := o.MarkDeleted(); err != nil {
			return err
		}
		if err := restoreStock(ctx, repos.StockRepo(), o.Lines); err != nil {
			return err
		}
		if err := repos.OrderRepo().Delete(ctx, o.ID); err != nil {
			return err
		}
		deleted = o
		return nil
	})
	if err != nil {
		return transactionError(err)
	}

	s.logger.Info("order deleted", zap.String("order_id", deleted.ID.String()))
	s.publish(ctx, deleted)
	return nil
}

// GetOrder returns one of the caller's orders with its lines
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := loadOwned(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// ListItems returns the lines of one of the caller's orders
func (s *OrderService) ListItems(ctx context.Context, userID, orderID uuid.UUID) ([]OrderItemResponse, error) {
	o, err := loadOwned(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderItemResponses(o.Lines), nil
}

// ListOrders returns a page of the caller's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, filter ListFilter) (*shared.Paginated[OrderListItemResponse], error) {
	f := order.ListFilter{
		Filter:   shared.DefaultFilter(),
		UserID:   &userID,
		Status:   order.Status(filter.Status),
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if f.FromDate != nil && f.ToDate != nil && f.ToDate.Before(*f.FromDate) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "to_date must not be before from_date")
	}

	orders, total, err := s.orderRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderListItemResponse(&orders[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// mutate loads an owned order inside a transaction, applies fn, and saves it
func (s *OrderService) mutate(ctx context.Context, userID, orderID uuid.UUID, fn func(TransactionalRepositories, *order.Order) error) (*OrderResponse, error) {
	var updated *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := loadOwned(ctx, repos.OrderRepo(), userID, orderID)
		if err != nil {
			return err
		}
		if err := fn(repos, o); err != nil {
			return err
		}
		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, transactionError(err)
	}

	s.publish(ctx, updated)
	response := ToOrderResponse(updated)
	return &response, nil
}

// reserveLine checks stock, appends the line and takes the stock with a
// guarded decrement. Both failures name the product.
func (s *OrderService) reserveLine(ctx context.Context, repos TransactionalRepositories, o *order.Order, productID uuid.UUID, variantID *uuid.UUID, quantity int) error {
	product, err := repos.ProductRepo().FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Product %s is not available for sale", product.Name))
	}

	var variant *catalog.Variant
	if variantID != nil {
		variant, err = repos.ProductRepo().FindVariant(ctx, productID, *variantID)
		if err != nil {
			return err
		}
	}

	available, err := repos.StockRepo().AvailableStock(ctx, productID, variantID)
	if err != nil {
		return err
	}
	if available < quantity {
		return insufficientStock(product.Name, quantity, available)
	}

	if _, err := o.AddLine(product, variant, quantity); err != nil {
		return err
	}
	if err := repos.StockRepo().AdjustStock(ctx, productID, variantID, -quantity); err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) {
			return insufficientStock(product.Name, quantity, available)
		}
		return err
	}
	return nil
}

// applyCoupon discounts the order against its running subtotal and redeems
// the coupon. A coupon that is not currently valid degrades to no discount.
func (s *OrderService) applyCoupon(ctx context.Context, repos TransactionalRepositories, o *order.Order, code string) error {
	c, err := repos.CouponRepo().FindByCode(ctx, coupon.NormalizeCode(code))
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if !c.IsValid(now) {
		s.logger.Info("coupon not applied",
			zap.String("order_number", o.OrderNumber),
			zap.String("code", c.Code),
			zap.NamedError("reason", c.Validate(now)),
		)
		return nil
	}

	o.RecalculateTotal()
	discount := c.CalculateDiscount(o.Subtotal, now)
	if err := o.AttachCoupon(c.ID, discount); err != nil {
		return err
	}
	return repos.CouponRepo().Redeem(ctx, c.ID)
}

// claim reserves an idempotency key for the duration of a request. The
// returned release func frees it again when the request fails.
func (s *OrderService) claim(ctx context.Context, scope string, userID uuid.UUID, key string) (func(), error) {
	noop := func() {}
	if key == "" || s.idempotency == nil || !s.idempotencyCfg.Enabled {
		return noop, nil
	}

	fullKey := fmt.Sprintf("%s:%s:%s", scope, userID, key)
	fresh, err := s.idempotency.MarkProcessed(ctx, fullKey, s.idempotencyCfg.TTL)
	if err != nil {
		s.logger.Warn("idempotency store unavailable, proceeding without replay protection",
			zap.String("key", fullKey), zap.Error(err))
		return noop, nil
	}
	if !fresh {
		return nil, shared.ErrDuplicateRequest
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), fullKey); err != nil {
			s.logger.Warn("failed to release idempotency key", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}

// publish hands the order's pending events to the event bus. Events are
// only published after commit; publish failures are logged.
func (s *OrderService) publish(ctx context.Context, o *order.Order) {
	events := o.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish order events",
			zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func loadOwned(ctx context.Context, repo order.Repository, userID, orderID uuid.UUID) (*order.Order, error) {
	o, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.OwnedBy(userID) {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Order belongs to another user")
	}
	return o, nil
}

func findCheckoutCart(ctx context.Context, repo cart.Repository, identity cart.Identity) (*cart.Cart, error) {
	c, err := repo.FindActive(ctx, cart.Identity{UserID: identity.UserID})
	if err == nil || !errors.Is(err, shared.ErrNotFound) || identity.SessionID == "" {
		return c, err
	}
	// A guest cart filled before signing in is checked out under the session.
	return repo.FindActive(ctx, cart.Identity{SessionID: identity.SessionID})
}

func restoreStock(ctx context.Context, stock catalog.StockMutator, lines []order.Line) error {
	for _, l := range lines {
		if err := stock.AdjustStock(ctx, l.ProductID, l.VariantID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func insufficientStock(name string, requested, available int) error {
	return shared.NewDomainError(shared.CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for %s: requested %d, available %d", name, requested, available))
}

// transactionError passes domain errors through and reports anything else
// as a rolled-back transaction.
func transactionError(err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrTransactionFailure, err)
}
