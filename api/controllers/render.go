package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/types"
)

type orderItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type orderView struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     int64           `json:"order_number"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   string          `json:"payment_status"`
	Currency        string          `json:"currency"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCharges decimal.Decimal `json:"shipping_charges"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	DiscountReason  *string         `json:"discount_reason,omitempty"`
	VoucherCode     *string         `json:"voucher_code,omitempty"`
	PointsUsed      int             `json:"points_used"`
	PointsEarned    int             `json:"points_earned"`
	TrackingNumber  *string         `json:"tracking_number,omitempty"`
	ShippingAddress types.Address   `json:"shipping_address"`
	Items           []orderItemView `json:"items"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func renderOrder(order *models.Order) orderView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Color:     item.Color,
			Size:      item.Size,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return orderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status.String(),
		PaymentMethod:   order.PaymentMethod.String(),
		PaymentStatus:   order.PaymentStatus.String(),
		Currency:        string(order.Currency),
		Subtotal:        order.Subtotal,
		ShippingCharges: order.ShippingCharges,
		Discount:        order.Discount,
		Total:           order.Total,
		DiscountReason:  order.DiscountReason,
		VoucherCode:     order.VoucherCode,
		PointsUsed:      order.PointsUsed,
		PointsEarned:    order.PointsEarned,
		TrackingNumber:  order.TrackingNumber,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		CancelledAt:     order.CancelledAt,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
	}
}

type cartItemView struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	Qty       int       `json:"qty"`
}

type cartView struct {
	ID     uuid.UUID      `json:"id"`
	Status string         `json:"status"`
	Items  []cartItemView `json:"items"`
}

func renderCart(cart *models.CartRecord) cartView {
	items := make([]cartItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Qty:       item.Qty,
		})
	}
	return cartView{
		ID:     cart.ID,
		Status: string(cart.Status),
		Items:  items,
	}
}
