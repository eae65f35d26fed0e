package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the sellable catalog entry. Catalog management is out of scope;
// the order path only reads price, discount and availability flags.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	VendorID      uuid.UUID        `gorm:"column:vendor_id;type:uuid;not null;index"`
	Title         string           `gorm:"column:title;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	Active        bool             `gorm:"column:active;not null;default:true"`
	Approved      bool             `gorm:"column:approved;not null;default:false"`
	Vendor        *Vendor          `gorm:"foreignKey:VendorID"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the discount price when set, else the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() {
		return *p.DiscountPrice
	}
	return p.Price
}
