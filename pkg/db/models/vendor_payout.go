package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/types"
)

// VendorPayout is one vendor's net proceeds from one order, held for the
// return/fraud window before release. Commission rate and bank details are
// frozen at creation; later vendor edits never apply retroactively.
type VendorPayout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	VendorID         uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	OrderID          uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Gross            decimal.Decimal    `gorm:"column:gross;type:numeric(12,2);not null"`
	Commission       decimal.Decimal    `gorm:"column:commission;type:numeric(12,2);not null"`
	Net              decimal.Decimal    `gorm:"column:net;type:numeric(12,2);not null"`
	CommissionRate   decimal.Decimal    `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	ScheduledRelease time.Time          `gorm:"column:scheduled_release;not null;index"`
	Status           enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	ProviderPayoutID *string            `gorm:"column:provider_payout_id;index"`
	BankAccount      string             `gorm:"column:bank_account;not null"`
	BankRouting      string             `gorm:"column:bank_routing;not null"`
	BankHolder       string             `gorm:"column:bank_holder;not null"`
	BankName         string             `gorm:"column:bank_name"`
	AttemptCount     int                `gorm:"column:attempt_count;not null;default:0"`
	LastError        *string            `gorm:"column:last_error"`
	ProviderResponse *types.JSONMap     `gorm:"column:provider_response;type:jsonb;serializer:json"`
	CompletedAt      *time.Time         `gorm:"column:completed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// MerchantReference is the idempotent reference sent to the payout provider
// and echoed back by its webhooks.
func (p VendorPayout) MerchantReference() string {
	return p.ID.String()
}
