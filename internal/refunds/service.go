package refunds

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/internal/inventory"
	"github.com/karimadly/soukly-backend/internal/orders"
	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/internal/payouts"
	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/outbox"
	"github.com/karimadly/soukly-backend/pkg/outbox/payloads"
)

// PaymentReverser is the slice of the payment service cancellation needs.
// Satisfied by payments.Service.
type PaymentReverser interface {
	DetermineRefundType(ctx context.Context, orderID uuid.UUID) (enums.RefundType, error)
	Void(ctx context.Context, orderID uuid.UUID) (*payments.ProviderResult, error)
	Refund(ctx context.Context, orderID uuid.UUID) (*payments.ProviderResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CancelInput identifies the order to cancel. UserID non-nil scopes the
// operation to the order's owner.
type CancelInput struct {
	OrderID uuid.UUID
	UserID  *uuid.UUID
	Reason  string
}

// CancelResult reports which refund path ran and its provider outcome.
type CancelResult struct {
	OrderStatus enums.OrderStatus
	RefundType  enums.RefundType
	Refund      *payments.ProviderResult
}

// Service resolves order cancellations into the right refund path.
type Service interface {
	// Cancel reverses an order: provider void/refund when money moved, then
	// cancellation, stock restore and payout clawback in one transaction.
	// The order flips to cancelled only after a successful provider result,
	// but pending payouts are clawed back on cancellation intent even when
	// the reversal fails.
	Cancel(ctx context.Context, input CancelInput) (*CancelResult, error)
}

// ServiceParams wires the cancellation resolver dependencies.
type ServiceParams struct {
	Orders    orders.Repository
	Payments  PaymentReverser
	Inventory inventory.Service
	Payouts   payouts.Repository
	Outbox    *outbox.Service
	Tx        txRunner
	Logger    *logger.Logger
}

type service struct {
	orders    orders.Repository
	payments  PaymentReverser
	inventory inventory.Service
	payouts   payouts.Repository
	events    *outbox.Service
	tx        txRunner
	logg      *logger.Logger
}

// NewService validates dependencies and returns the cancellation resolver.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, errors.New("order repository is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payment reverser is required")
	}
	if params.Inventory == nil {
		return nil, errors.New("inventory service is required")
	}
	if params.Payouts == nil {
		return nil, errors.New("payout repository is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &service{
		orders:    params.Orders,
		payments:  params.Payments,
		inventory: params.Inventory,
		payouts:   params.Payouts,
		events:    params.Outbox,
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*CancelResult, error) {
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if input.UserID != nil && (order.UserID == nil || *order.UserID != *input.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	if order.Status == enums.OrderStatusCancelled ||
		order.PaymentStatus == enums.PaymentStatusRefunded ||
		order.PaymentStatus == enums.PaymentStatusVoided {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already processed")
	}
	if !order.Status.Cancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{"status": order.Status})
	}

	refundType := enums.RefundTypeNone
	var providerResult *payments.ProviderResult

	// money only moves through the gateway; a paid gateway order must be
	// reversed with the provider before any local state flips
	if order.PaymentStatus == enums.PaymentStatusPaid && order.PaymentMethod.RequiresGateway() {
		refundType, err = s.payments.DetermineRefundType(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		switch refundType {
		case enums.RefundTypeVoid:
			providerResult, err = s.payments.Void(ctx, order.ID)
		case enums.RefundTypeRefund:
			providerResult, err = s.payments.Refund(ctx, order.ID)
		}
		if err != nil {
			// the cancellation intent stands for held funds: payouts not yet
			// released are clawed back even when the reversal fails, so the
			// dispatcher cannot pay a vendor for an order under cancellation
			return nil, multierr.Append(err, s.clawBackPayouts(ctx, order.ID))
		}
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		fields := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}
		if input.Reason != "" {
			fields["cancelled_reason"] = input.Reason
		}
		// conditional flip: a concurrent cancel or ship transition wins the
		// row and this branch aborts instead of cancelling a moved order
		rows, err := s.orders.WithTx(tx).UpdateFieldsWhereStatus(ctx, order.ID, fields, enums.CancellableOrderStatuses())
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already processed")
		}

		if err := s.inventory.Restore(ctx, tx, restockLines(order.Items)); err != nil {
			return err
		}

		cancelled, err := s.payouts.WithTx(tx).CancelPendingByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if cancelled > 0 {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id": order.ID.String(),
				"payouts":  cancelled,
			})
			s.logg.Info(logCtx, "pending vendor payouts clawed back")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				RefundType:  refundType,
				Reason:      input.Reason,
				CancelledAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order cancelled")
	return &CancelResult{
		OrderStatus: enums.OrderStatusCancelled,
		RefundType:  refundType,
		Refund:      providerResult,
	}, nil
}

func (s *service) clawBackPayouts(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cancelled, err := s.payouts.WithTx(tx).CancelPendingByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if cancelled > 0 {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id": orderID.String(),
				"payouts":  cancelled,
			})
			s.logg.Info(logCtx, "pending vendor payouts clawed back")
		}
		return nil
	})
}

func restockLines(items []models.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Qty:       item.Qty,
		})
	}
	return lines
}
