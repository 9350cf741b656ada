// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel, SoftDeleteModel and AggregateModel
//   - catalog.go: products and product variants
//   - cart.go: carts and cart lines
//   - order.go: orders and order lines
//   - coupon.go: coupons
package models
