package models

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	SKU    string                `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	Name   string                `gorm:"type:varchar(255);not null"`
	Price  valueobject.Money     `gorm:"type:decimal(12,2);not null"`
	Stock  int                   `gorm:"not null;default:0;check:stock >= 0"`
	Status catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SKU:               m.SKU,
		Name:              m.Name,
		Price:             m.Price,
		Stock:             m.Stock,
		Status:            m.Status,
	}
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Price = p.Price
	m.Stock = p.Stock
	m.Status = p.Status
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// VariantModel is the persistence model for a product variant.
type VariantModel struct {
	SoftDeleteModel
	ProductID uuid.UUID          `gorm:"type:uuid;not null;index"`
	SKU       string             `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	Name      string             `gorm:"type:varchar(255);not null"`
	Price     *valueobject.Money `gorm:"type:decimal(12,2)"`
	Stock     int                `gorm:"not null;default:0;check:stock >= 0"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Variant.
func (m *VariantModel) ToDomain() *catalog.Variant {
	return &catalog.Variant{
		BaseEntity: m.BaseModel.ToDomain(),
		ProductID:  m.ProductID,
		SKU:        m.SKU,
		Name:       m.Name,
		Price:      m.Price,
		Stock:      m.Stock,
	}
}

// FromDomain populates the persistence model from a domain Variant.
func (m *VariantModel) FromDomain(v *catalog.Variant) {
	m.FromDomainBaseEntity(v.BaseEntity)
	m.ProductID = v.ProductID
	m.SKU = v.SKU
	m.Name = v.Name
	m.Price = v.Price
	m.Stock = v.Stock
}

// VariantModelFromDomain creates a new persistence model from a domain Variant.
func VariantModelFromDomain(v *catalog.Variant) *VariantModel {
	m := &VariantModel{}
	m.FromDomain(v)
	return m
}
