package order

import (
	"context"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/order"
)

// TransactionScope runs order workflows atomically. Every repository handed
// to fn shares one database transaction that commits when fn returns nil
// and rolls back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories an order workflow
// touches, all scoped to the same transaction.
type TransactionalRepositories interface {
	// OrderRepo returns the order repository
	OrderRepo() order.Repository
	// ProductRepo returns the product/variant read repository
	ProductRepo() catalog.ProductRepository
	// StockRepo returns the guarded stock reader/mutator
	StockRepo() catalog.StockRepository
	// CouponRepo returns the coupon repository, used for atomic redemption
	CouponRepo() coupon.Repository
	// CartRepo returns the cart repository, used by checkout
	CartRepo() cart.Repository
}

// NoOpTransactionScope runs fn against fixed repositories without a
// transaction. Used in tests.
type NoOpTransactionScope struct {
	orderRepo   order.Repository
	productRepo catalog.ProductRepository
	stockRepo   catalog.StockRepository
	couponRepo  coupon.Repository
	cartRepo    cart.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orderRepo order.Repository,
	productRepo catalog.ProductRepository,
	stockRepo catalog.StockRepository,
	couponRepo coupon.Repository,
	cartRepo cart.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		stockRepo:   stockRepo,
		couponRepo:  couponRepo,
		cartRepo:    cartRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order repository.
func (s *NoOpTransactionScope) OrderRepo() order.Repository { return s.orderRepo }

// ProductRepo returns the product repository.
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository { return s.productRepo }

// StockRepo returns the stock repository.
func (s *NoOpTransactionScope) StockRepo() catalog.StockRepository { return s.stockRepo }

// CouponRepo returns the coupon repository.
func (s *NoOpTransactionScope) CouponRepo() coupon.Repository { return s.couponRepo }

// CartRepo returns the cart repository.
func (s *NoOpTransactionScope) CartRepo() cart.Repository { return s.cartRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
