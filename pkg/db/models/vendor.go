package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/types"
)

// Vendor is a marketplace seller. CommissionRate is a percentage; when nil
// the global default from config applies. Settings carries the bank details
// blob that payout scheduling snapshots.
type Vendor struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name           string                `gorm:"column:name;not null"`
	Approved       bool                  `gorm:"column:approved;not null;default:false"`
	CommissionRate *decimal.Decimal      `gorm:"column:commission_rate;type:numeric(5,2)"`
	Settings       *types.VendorSettings `gorm:"column:settings;type:jsonb;serializer:json"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// BankDetails returns the configured bank snapshot source, nil when unset.
func (v Vendor) BankDetails() *types.BankDetails {
	if v.Settings == nil {
		return nil
	}
	return v.Settings.Bank
}
