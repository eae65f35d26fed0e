package orders

import (
	"github.com/google/uuid"

	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/types"
)

// OrderLineInput is one requested purchase line.
type OrderLineInput struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	Qty       int
}

// CreateOrderInput is everything checkout needs to build an order. UserID nil
// means guest checkout; GuestToken then links the cart to clear.
type CreateOrderInput struct {
	UserID          *uuid.UUID
	GuestToken      string
	Items           []OrderLineInput
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	VoucherCode     string
	PointsToRedeem  int
}

// UpdateStatusInput drives an admin fulfillment transition.
type UpdateStatusInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	TrackingNumber *string
}

// VendorUpdateStatusInput is the vendor-scoped variant; the vendor must own
// at least one line of the order.
type VendorUpdateStatusInput struct {
	VendorID       uuid.UUID
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	TrackingNumber *string
}

// ListInput pages a user's own orders.
type ListInput struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}
