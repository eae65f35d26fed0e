package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/types"
)

// Order is the immutable purchase aggregate. Totals are computed once at
// creation and never recomputed from mutable state; only status-transition
// operations mutate the row afterwards.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID           *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	OrderNumber      int64               `gorm:"column:order_number;not null;uniqueIndex"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Currency         enums.Currency      `gorm:"column:currency;type:text;not null;default:'EGP'"`
	Subtotal         decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCharges  decimal.Decimal     `gorm:"column:shipping_charges;type:numeric(12,2);not null"`
	Discount         decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	Total            decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	DiscountReason   *string             `gorm:"column:discount_reason"`
	VoucherCode      *string             `gorm:"column:voucher_code"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PointsUsed       int                 `gorm:"column:points_used;not null;default:0"`
	PointsEarned     int                 `gorm:"column:points_earned;not null;default:0"`
	FirstOrder       bool                `gorm:"column:first_order;not null;default:false"`
	PaymentReference *string             `gorm:"column:payment_reference;index"`
	TransactionID    *string             `gorm:"column:transaction_id"`
	TrackingNumber   *string             `gorm:"column:tracking_number"`
	CancelledReason  *string             `gorm:"column:cancelled_reason"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
