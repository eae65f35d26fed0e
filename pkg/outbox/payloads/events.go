package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/enums"
)

// OrderPlacedEvent signals a newly created order, before payment settles.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   int64               `json:"order_number"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	Total         decimal.Decimal     `json:"total"`
	Currency      enums.Currency      `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	VendorIDs     []uuid.UUID         `json:"vendor_ids"`
}

// OrderCancelledEvent is emitted when cancellation succeeds, with the
// refund path the resolver chose.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	RefundType  enums.RefundType `json:"refund_type"`
	Reason      string           `json:"reason,omitempty"`
	CancelledAt time.Time        `json:"cancelled_at"`
}

// OrderStatusChangedEvent reports a fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

// PaymentSettledEvent fires once per order when the gateway confirms capture.
type PaymentSettledEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	PaymentReference string          `json:"payment_reference"`
	ProviderTxnID    string          `json:"provider_txn_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         enums.Currency  `json:"currency"`
}

// PayoutCompletedEvent reports provider confirmation of a vendor payout.
type PayoutCompletedEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	Net         decimal.Decimal `json:"net"`
	CompletedAt time.Time       `json:"completed_at"`
}

// PayoutFailedEvent reports a payout that exhausted its retry budget.
type PayoutFailedEvent struct {
	PayoutID uuid.UUID `json:"payout_id"`
	VendorID uuid.UUID `json:"vendor_id"`
	OrderID  uuid.UUID `json:"order_id"`
	Attempts int       `json:"attempts"`
	LastErr  string    `json:"last_error,omitempty"`
}
