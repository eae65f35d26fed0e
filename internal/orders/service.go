package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/internal/discounts"
	"github.com/karimadly/soukly-backend/internal/inventory"
	"github.com/karimadly/soukly-backend/internal/payouts"
	dbpkg "github.com/karimadly/soukly-backend/pkg/db"
	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/outbox"
	"github.com/karimadly/soukly-backend/pkg/outbox/payloads"
	"github.com/karimadly/soukly-backend/pkg/pagination"
)

// CartClearer retires the buyer's active cart inside the checkout transaction.
type CartClearer interface {
	ClearAfterOrder(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, guestToken string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// reruns of the checkout transaction when the allocated order number lost
// a race to a concurrent checkout
const orderNumberAttempts = 3

// Service is the order aggregate builder and status machine.
type Service interface {
	// Create runs the whole checkout in one transaction: product checks,
	// stock reservation, discount computation, totals, voucher consumption,
	// points adjustment and cart clearing all commit or roll back together.
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	// Get returns the order when it belongs to the user.
	Get(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	// List pages the user's orders newest first; the returned cursor is empty
	// on the last page.
	List(ctx context.Context, input ListInput) ([]models.Order, string, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	VendorUpdateStatus(ctx context.Context, input VendorUpdateStatusInput) (*models.Order, error)
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo      Repository
	Products  ProductLookup
	Users     UserStore
	Vouchers  discounts.Repository
	Inventory inventory.Service
	Payouts   payouts.Scheduler
	Carts     CartClearer
	Outbox    *outbox.Service
	Tx        txRunner
	Logger    *logger.Logger

	ShippingFlatRate          decimal.Decimal
	FirstOrderDiscountPercent int
	MaxQtyPerLine             int
	Currency                  enums.Currency
}

type service struct {
	repo      Repository
	products  ProductLookup
	users     UserStore
	vouchers  discounts.Repository
	inventory inventory.Service
	payouts   payouts.Scheduler
	carts     CartClearer
	events    *outbox.Service
	tx        txRunner
	logg      *logger.Logger

	shippingFlatRate decimal.Decimal
	firstOrderPct    int
	maxQtyPerLine    int
	currency         enums.Currency
}

// NewService validates dependencies and returns the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("order repository is required")
	}
	if params.Products == nil {
		return nil, errors.New("product lookup is required")
	}
	if params.Users == nil {
		return nil, errors.New("user store is required")
	}
	if params.Vouchers == nil {
		return nil, errors.New("voucher repository is required")
	}
	if params.Inventory == nil {
		return nil, errors.New("inventory service is required")
	}
	if params.Payouts == nil {
		return nil, errors.New("payout scheduler is required")
	}
	if params.Carts == nil {
		return nil, errors.New("cart clearer is required")
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
	if params.MaxQtyPerLine <= 0 {
		params.MaxQtyPerLine = 20
	}
	if params.Currency == "" {
		params.Currency = enums.CurrencyEGP
	}
	return &service{
		repo:             params.Repo,
		products:         params.Products,
		users:            params.Users,
		vouchers:         params.Vouchers,
		inventory:        params.Inventory,
		payouts:          params.Payouts,
		carts:            params.Carts,
		events:           params.Outbox,
		tx:               params.Tx,
		logg:             params.Logger,
		shippingFlatRate: params.ShippingFlatRate,
		firstOrderPct:    params.FirstOrderDiscountPercent,
		maxQtyPerLine:    params.MaxQtyPerLine,
		currency:         params.Currency,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	var order *models.Order
	createTx := func(tx *gorm.DB) error {
		var user *models.User
		if input.UserID != nil {
			found, err := s.users.WithTx(tx).FindByID(ctx, *input.UserID)
			if err != nil {
				return err
			}
			if found == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			user = found
		}

		items, subtotal, err := s.buildLines(ctx, tx, input.Items)
		if err != nil {
			return err
		}

		reserve := make([]inventory.Line, 0, len(input.Items))
		for _, line := range input.Items {
			reserve = append(reserve, inventory.Line{
				ProductID: line.ProductID,
				Color:     line.Color,
				Size:      line.Size,
				Qty:       line.Qty,
			})
		}
		if err := s.inventory.Reserve(ctx, tx, reserve); err != nil {
			return err
		}

		voucher, err := s.resolveVoucher(ctx, tx, input.VoucherCode)
		if err != nil {
			return err
		}
		balance := 0
		if user != nil {
			balance = user.RewardPoints
		}
		discount, err := discounts.Compute(discounts.Input{
			Subtotal:        subtotal,
			VoucherCode:     input.VoucherCode,
			Voucher:         voucher,
			PointsRequested: input.PointsToRedeem,
			PointsBalance:   balance,
			Now:             time.Now(),
		})
		if err != nil {
			return err
		}

		discountAmount := discount.Amount
		discountReason := discount.Reason
		firstOrder := user != nil && user.OrdersCount == 0
		if firstOrder && s.firstOrderPct > 0 {
			extra := subtotal.
				Mul(decimal.NewFromInt(int64(s.firstOrderPct))).
				Div(decimal.NewFromInt(100)).
				Round(2)
			discountAmount = discountAmount.Add(extra)
			note := fmt.Sprintf("first order discount (%d%%)", s.firstOrderPct)
			if discountReason != "" {
				discountReason = discountReason + "; " + note
			} else {
				discountReason = note
			}
		}
		if discountAmount.GreaterThan(subtotal) {
			discountAmount = subtotal
		}

		shipping := s.shippingFlatRate
		total := subtotal.Add(shipping).Sub(discountAmount).Round(2)

		earned := 0
		if user != nil {
			earned = discounts.PointsEarned(total)
		}

		orderNumber, err := s.repo.WithTx(tx).NextOrderNumber(ctx)
		if err != nil {
			return err
		}

		order = &models.Order{
			ID:              uuid.New(),
			OrderNumber:     orderNumber,
			UserID:          input.UserID,
			ShippingAddress: input.ShippingAddress,
			Currency:        s.currency,
			Subtotal:        subtotal,
			ShippingCharges: shipping,
			Discount:        discountAmount,
			Total:           total,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   enums.PaymentStatusPending,
			Status:          enums.OrderStatusPending,
			PointsUsed:      input.PointsToRedeem,
			PointsEarned:    earned,
			FirstOrder:      firstOrder,
			Items:           items,
		}
		if discountReason != "" {
			order.DiscountReason = &discountReason
		}
		if discount.VoucherCode != nil {
			order.VoucherCode = discount.VoucherCode
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		if discount.VoucherCode != nil {
			if err := s.vouchers.WithTx(tx).IncrementUsage(ctx, *discount.VoucherCode); err != nil {
				return err
			}
		}

		if user != nil {
			delta := earned - input.PointsToRedeem
			if err := s.users.WithTx(tx).ApplyOrderEffects(ctx, user.ID, delta); err != nil {
				return err
			}
		}

		if err := s.carts.ClearAfterOrder(ctx, tx, input.UserID, input.GuestToken); err != nil {
			return err
		}

		// best effort: a missing payout row is operator-remediable
		if err := s.payouts.Schedule(ctx, tx, order, order.Items); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "scheduling vendor payouts", err)
		}

		vendorIDs := make([]uuid.UUID, 0, len(order.Items))
		seen := map[uuid.UUID]bool{}
		for _, item := range order.Items {
			if !seen[item.VendorID] {
				seen[item.VendorID] = true
				vendorIDs = append(vendorIDs, item.VendorID)
			}
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(input.UserID),
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				Total:         order.Total,
				Currency:      order.Currency,
				PaymentMethod: order.PaymentMethod,
				VendorIDs:     vendorIDs,
			},
		})
	}

	// concurrent checkouts can allocate the same order number; the unique
	// index fails the loser and the checkout reruns on a fresh transaction
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order = nil
		err = s.tx.WithTx(ctx, createTx)
		if err == nil || !dbpkg.IsUniqueViolation(err, "ux_orders_order_number") {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order placed")
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	rows, err := s.repo.ListByUser(ctx, input.UserID, limit+1, cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	return s.transition(ctx, input.OrderID, input.Status, input.TrackingNumber, nil)
}

func (s *service) VendorUpdateStatus(ctx context.Context, input VendorUpdateStatusInput) (*models.Order, error) {
	owns, err := s.repo.HasVendorItems(ctx, input.OrderID, input.VendorID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.transition(ctx, input.OrderID, input.Status, input.TrackingNumber, &input.VendorID)
}

var forwardTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusProcessing},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusShipped},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

func canTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range forwardTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, trackingNumber *string, vendorID *uuid.UUID) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if to == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation goes through the cancel operation")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !canTransition(order.Status, to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
				WithDetails(map[string]any{"from": order.Status, "to": to})
		}

		fields := map[string]any{"status": to}
		if trackingNumber != nil && *trackingNumber != "" {
			fields["tracking_number"] = trackingNumber
		}
		if to == enums.OrderStatusDelivered {
			fields["delivered_at"] = time.Now()
		}
		if err := repo.UpdateFields(ctx, orderID, fields); err != nil {
			return err
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatus,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorForVendor(vendorID),
			Data: payloads.OrderStatusChangedEvent{
				OrderID: order.ID,
				From:    order.Status,
				To:      to,
			},
		}); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) validateCreate(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if line.Qty <= 0 || line.Qty > s.maxQtyPerLine {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range").
				WithDetails(map[string]any{"product_id": line.ProductID, "max": s.maxQtyPerLine})
		}
	}
	if field := input.ShippingAddress.Validate(); field != "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"field": field})
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if input.UserID == nil && input.PointsToRedeem > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest checkout cannot redeem points")
	}
	return nil
}

// buildLines snapshots name, vendor and unit price per requested line.
func (s *service) buildLines(ctx context.Context, tx *gorm.DB, lines []OrderLineInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if !product.Active || !product.Approved || product.Vendor == nil || !product.Vendor.Approved {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeConflict, "product unavailable").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}

		unitPrice := product.EffectivePrice()
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Qty))).Round(2)
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			VendorID:  product.VendorID,
			Name:      product.Title,
			Color:     line.Color,
			Size:      line.Size,
			Qty:       line.Qty,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal.Round(2), nil
}

func (s *service) resolveVoucher(ctx context.Context, tx *gorm.DB, code string) (*models.Voucher, error) {
	if code == "" {
		return nil, nil
	}
	voucher, err := s.vouchers.WithTx(tx).FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func actorFor(userID *uuid.UUID) *outbox.ActorRef {
	if userID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *userID, Role: "customer"}
}

func actorForVendor(vendorID *uuid.UUID) *outbox.ActorRef {
	if vendorID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *vendorID, Role: "vendor"}
}
