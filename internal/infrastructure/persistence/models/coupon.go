package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/coupon"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// CouponModel is the persistence model for the Coupon aggregate root.
type CouponModel struct {
	AggregateModel
	Code          string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type          coupon.Type        `gorm:"type:varchar(20);not null"`
	Value         decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	ValidFrom     time.Time          `gorm:"not null"`
	ValidUntil    *time.Time         `gorm:"index"`
	MaxUses       *int
	TimesUsed     int                `gorm:"not null;default:0"`
	MinOrderValue *valueobject.Money `gorm:"type:decimal(12,2)"`
	IsActive      bool               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (CouponModel) TableName() string {
	return "coupons"
}

// ToDomain converts the persistence model to a domain Coupon.
func (m *CouponModel) ToDomain() *coupon.Coupon {
	return &coupon.Coupon{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Type:              m.Type,
		Value:             m.Value,
		ValidFrom:         m.ValidFrom,
		ValidUntil:        m.ValidUntil,
		MaxUses:           m.MaxUses,
		TimesUsed:         m.TimesUsed,
		MinOrderValue:     m.MinOrderValue,
		IsActive:          m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Coupon.
func (m *CouponModel) FromDomain(c *coupon.Coupon) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Code = c.Code
	m.Type = c.Type
	m.Value = c.Value
	m.ValidFrom = c.ValidFrom
	m.ValidUntil = c.ValidUntil
	m.MaxUses = c.MaxUses
	m.TimesUsed = c.TimesUsed
	m.MinOrderValue = c.MinOrderValue
	m.IsActive = c.IsActive
}

// CouponModelFromDomain creates a new persistence model from a domain Coupon.
func CouponModelFromDomain(c *coupon.Coupon) *CouponModel {
	m := &CouponModel{}
	m.FromDomain(c)
	return m
}
