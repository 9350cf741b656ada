package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("persistence.models")

// CartModel is the persistence model for the Cart aggregate root.
// Postgres keeps at most one active cart per user and per session through
// partial unique indexes created by the migrations.
type CartModel struct {
	AggregateModel
	UserID       *uuid.UUID      `gorm:"type:uuid;index"`
	SessionID    *string         `gorm:"type:varchar(255);index"`
	Status       cart.Status     `gorm:"type:varchar(20);not null;default:'active';index"`
	ExpiresAt    time.Time       `gorm:"not null;index"`
	MetadataJSON string          `gorm:"column:metadata;type:jsonb;not null;default:'{}'"`
	Items        []CartItemModel `gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// ToDomain converts the persistence model to a domain Cart.
func (m *CartModel) ToDomain() *cart.Cart {
	c := &cart.Cart{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UserID:            m.UserID,
		Status:            m.Status,
		ExpiresAt:         m.ExpiresAt,
		Metadata:          make(map[string]string),
		Lines:             make([]cart.Line, len(m.Items)),
	}
	if m.SessionID != nil {
		c.SessionID = *m.SessionID
	}
	if m.MetadataJSON != "" && m.MetadataJSON != "{}" {
		if err := json.Unmarshal([]byte(m.MetadataJSON), &c.Metadata); err != nil {
			modelLogger.Warn("failed to parse cart metadata JSON",
				zap.String("cart_id", m.ID.String()),
				zap.String("raw_json", m.MetadataJSON),
				zap.Error(err))
		}
	}
	for i := range m.Items {
		c.Lines[i] = m.Items[i].ToDomain()
	}
	return c
}

// FromDomain populates the persistence model from a domain Cart.
func (m *CartModel) FromDomain(c *cart.Cart) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.UserID = c.UserID
	m.SessionID = nil
	if c.SessionID != "" {
		sid := c.SessionID
		m.SessionID = &sid
	}
	m.Status = c.Status
	m.ExpiresAt = c.ExpiresAt
	m.MetadataJSON = "{}"
	if len(c.Metadata) > 0 {
		if jsonBytes, err := json.Marshal(c.Metadata); err == nil {
			m.MetadataJSON = string(jsonBytes)
		}
	}
	m.Items = make([]CartItemModel, len(c.Lines))
	for i := range c.Lines {
		m.Items[i].FromDomain(c.ID, &c.Lines[i])
	}
}

// CartModelFromDomain creates a new persistence model from a domain Cart.
func CartModelFromDomain(c *cart.Cart) *CartModel {
	m := &CartModel{}
	m.FromDomain(c)
	return m
}

// CartItemModel is the persistence model for a cart line.
type CartItemModel struct {
	SoftDeleteModel
	CartID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID         `gorm:"type:uuid;not null;index"`
	VariantID *uuid.UUID        `gorm:"type:uuid"`
	Quantity  int               `gorm:"not null;check:quantity > 0"`
	UnitPrice valueobject.Money `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain cart Line.
func (m *CartItemModel) ToDomain() cart.Line {
	return cart.Line{
		ID:        m.ID,
		CartID:    m.CartID,
		ProductID: m.ProductID,
		VariantID: m.VariantID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain cart Line.
func (m *CartItemModel) FromDomain(cartID uuid.UUID, l *cart.Line) {
	m.ID = l.ID
	m.CreatedAt = l.CreatedAt
	m.UpdatedAt = l.UpdatedAt
	m.CartID = cartID
	m.ProductID = l.ProductID
	m.VariantID = l.VariantID
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
}
