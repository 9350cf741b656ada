package models

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber     string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	UserID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status          order.Status        `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus   order.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentMethod   string              `gorm:"type:varchar(50);not null"`
	ShippingAddress string              `gorm:"type:text;not null"`
	BillingAddress  string              `gorm:"type:text;not null"`
	Subtotal        valueobject.Money   `gorm:"type:decimal(12,2);not null;default:0"`
	Tax             valueobject.Money   `gorm:"type:decimal(12,2);not null;default:0"`
	Shipping        valueobject.Money   `gorm:"type:decimal(12,2);not null;default:0"`
	Discount        valueobject.Money   `gorm:"type:decimal(12,2);not null;default:0"`
	Total           valueobject.Money   `gorm:"type:decimal(12,2);not null;default:0"`
	CouponID        *uuid.UUID          `gorm:"type:uuid;index"`
	CartID          *uuid.UUID          `gorm:"type:uuid;index"`
	Items           []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		PaymentMethod:     m.PaymentMethod,
		ShippingAddress:   m.ShippingAddress,
		BillingAddress:    m.BillingAddress,
		Subtotal:          m.Subtotal,
		Tax:               m.Tax,
		Shipping:          m.Shipping,
		Discount:          m.Discount,
		Total:             m.Total,
		CouponID:          m.CouponID,
		CartID:            m.CartID,
		Lines:             make([]order.Line, len(m.Items)),
	}
	for i := range m.Items {
		o.Lines[i] = m.Items[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.PaymentMethod = o.PaymentMethod
	m.ShippingAddress = o.ShippingAddress
	m.BillingAddress = o.BillingAddress
	m.Subtotal = o.Subtotal
	m.Tax = o.Tax
	m.Shipping = o.Shipping
	m.Discount = o.Discount
	m.Total = o.Total
	m.CouponID = o.CouponID
	m.CartID = o.CartID
	m.Items = make([]OrderItemModel, len(o.Lines))
	for i := range o.Lines {
		m.Items[i].FromDomain(o.ID, &o.Lines[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	SoftDeleteModel
	OrderID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	VariantID   *uuid.UUID        `gorm:"type:uuid"`
	ProductName string            `gorm:"type:varchar(255);not null"`
	Quantity    int               `gorm:"not null;check:quantity > 0"`
	UnitPrice   valueobject.Money `gorm:"type:decimal(12,2);not null"`
	Subtotal    valueobject.Money `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain order Line.
func (m *OrderItemModel) ToDomain() order.Line {
	return order.Line{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		VariantID:   m.VariantID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Subtotal:    m.Subtotal,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain order Line.
func (m *OrderItemModel) FromDomain(orderID uuid.UUID, l *order.Line) {
	m.ID = l.ID
	m.CreatedAt = l.CreatedAt
	m.UpdatedAt = l.UpdatedAt
	m.OrderID = orderID
	m.ProductID = l.ProductID
	m.VariantID = l.VariantID
	m.ProductName = l.ProductName
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
	m.Subtotal = l.Subtotal
}
