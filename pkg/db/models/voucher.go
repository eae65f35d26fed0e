package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Voucher is a discount code. Amount and Percent are mutually exclusive;
// Percent applies against the order subtotal.
type Voucher struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code       string           `gorm:"column:code;not null;uniqueIndex"`
	Amount     *decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	Percent    *decimal.Decimal `gorm:"column:percent;type:numeric(5,2)"`
	Active     bool             `gorm:"column:active;not null;default:true"`
	ValidFrom  *time.Time       `gorm:"column:valid_from"`
	ValidUntil *time.Time       `gorm:"column:valid_until"`
	UsageLimit *int             `gorm:"column:usage_limit"`
	UsedCount  int              `gorm:"column:used_count;not null;default:0"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
