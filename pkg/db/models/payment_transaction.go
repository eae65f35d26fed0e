package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/types"
)

// PaymentTransaction is the audit row for one payment session against the
// gateway. It is created when the session opens and updated in place by
// webhook processing; never replaced.
type PaymentTransaction struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Provider         string              `gorm:"column:provider;not null"`
	ProviderTxnID    *string             `gorm:"column:provider_txn_id;index"`
	PaymentReference string              `gorm:"column:payment_reference;not null;uniqueIndex"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;type:text;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Settled          bool                `gorm:"column:settled;not null;default:false"`
	RawPayload       *types.JSONMap      `gorm:"column:raw_payload;type:jsonb;serializer:json"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
