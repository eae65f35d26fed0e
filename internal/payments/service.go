package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/internal/orders"
	"github.com/karimadly/soukly-backend/internal/webhooks"
	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/outbox"
	"github.com/karimadly/soukly-backend/pkg/outbox/payloads"
	"github.com/karimadly/soukly-backend/pkg/paymob"
	"github.com/karimadly/soukly-backend/pkg/types"
)

const providerName = "paymob"

// Gateway is the slice of the acceptance API the service needs. Satisfied by
// *paymob.Client.
type Gateway interface {
	Authenticate(ctx context.Context) (string, error)
	RegisterOrder(ctx context.Context, params paymob.RegisterOrderParams) (int64, error)
	PaymentKey(ctx context.Context, params paymob.PaymentKeyParams) (string, error)
	IFrameURL(paymentToken string) string
	Refund(ctx context.Context, authToken string, providerTxnID string, amountCents int64) (*paymob.TransactionResponse, error)
	Void(ctx context.Context, authToken string, providerTxnID string) (*paymob.TransactionResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateSessionInput opens a hosted checkout session for an order.
type CreateSessionInput struct {
	OrderID       uuid.UUID
	CustomerEmail string
	CustomerPhone string
}

// Session is the client-facing handle for a hosted checkout.
type Session struct {
	PaymentKey       string
	CheckoutURL      string
	PaymentReference string
	ExpiresAt        time.Time
}

// WebhookEvent is one transaction callback from the gateway, already
// signature-verified and flattened by the controller.
type WebhookEvent struct {
	EventID          string
	ProviderTxnID    string
	PaymentReference string
	Status           string
	AmountCents      int64
	RawPayload       []byte
}

// ProviderResult reports the outcome of a refund or void call.
type ProviderResult struct {
	Success       bool
	TransactionID string
	Status        enums.PaymentStatus
	ProcessedAt   time.Time
}

// Service owns payment sessions and the webhook-driven payment lifecycle.
type Service interface {
	// CreateSession registers the order on the gateway and returns the hosted
	// checkout handle. Gateway failure surfaces as a dependency error and
	// leaves the order untouched.
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	// ProcessWebhookEvent applies one gateway callback: claims the event id,
	// maps the provider status and updates transaction + order in one
	// transaction. Replays are no-ops.
	ProcessWebhookEvent(ctx context.Context, event WebhookEvent) error
	// DetermineRefundType picks void for unsettled charges, refund for
	// captured ones.
	DetermineRefundType(ctx context.Context, orderID uuid.UUID) (enums.RefundType, error)
	Void(ctx context.Context, orderID uuid.UUID) (*ProviderResult, error)
	Refund(ctx context.Context, orderID uuid.UUID) (*ProviderResult, error)
}

// ServiceParams wires the payment service dependencies.
type ServiceParams struct {
	Repo          Repository
	Orders        orders.Repository
	Gateway       Gateway
	Claims        webhooks.ClaimStore
	Outbox        *outbox.Service
	Tx            txRunner
	Logger        *logger.Logger
	SessionExpiry time.Duration
}

type service struct {
	repo          Repository
	orders        orders.Repository
	gateway       Gateway
	claims        webhooks.ClaimStore
	events        *outbox.Service
	tx            txRunner
	logg          *logger.Logger
	sessionExpiry time.Duration
}

// NewService validates dependencies and returns the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("payment repository is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order repository is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if params.Claims == nil {
		return nil, errors.New("webhook claim store is required")
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
	if params.SessionExpiry <= 0 {
		params.SessionExpiry = time.Hour
	}
	return &service{
		repo:          params.Repo,
		orders:        params.Orders,
		gateway:       params.Gateway,
		claims:        params.Claims,
		events:        params.Outbox,
		tx:            params.Tx,
		logg:          params.Logger,
		sessionExpiry: params.SessionExpiry,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.PaymentMethod.RequiresGateway() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order does not use a payment gateway")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	reference := uuid.NewString()
	amountCents := paymob.AmountCents(order.Total)

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment session failed")
	}
	gatewayID, err := s.gateway.RegisterOrder(ctx, paymob.RegisterOrderParams{
		AuthToken:       token,
		MerchantOrderID: reference,
		AmountCents:     amountCents,
		Currency:        order.Currency.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment session failed")
	}
	paymentKey, err := s.gateway.PaymentKey(ctx, paymob.PaymentKeyParams{
		AuthToken:   token,
		GatewayID:   gatewayID,
		AmountCents: amountCents,
		Currency:    order.Currency.String(),
		ExpirySecs:  int(s.sessionExpiry.Seconds()),
		Billing: paymob.BillingData{
			FirstName:   order.ShippingAddress.FullName,
			Email:       input.CustomerEmail,
			PhoneNumber: input.CustomerPhone,
			Street:      order.ShippingAddress.Line1,
			City:        order.ShippingAddress.City,
			State:       order.ShippingAddress.Governorate,
			Country:     order.ShippingAddress.Country,
			PostalCode:  order.ShippingAddress.PostalCode,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment session failed")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txn := models.PaymentTransaction{
			ID:               uuid.New(),
			OrderID:          order.ID,
			Provider:         providerName,
			PaymentReference: reference,
			Amount:           order.Total,
			Currency:         order.Currency,
			Status:           enums.PaymentStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, &txn); err != nil {
			return err
		}
		return s.orders.WithTx(tx).UpdateFields(ctx, order.ID, map[string]any{
			"payment_reference": reference,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "payment session created")
	return &Session{
		PaymentKey:       paymentKey,
		CheckoutURL:      s.gateway.IFrameURL(paymentKey),
		PaymentReference: reference,
		ExpiresAt:        time.Now().Add(s.sessionExpiry),
	}, nil
}

func (s *service) ProcessWebhookEvent(ctx context.Context, event WebhookEvent) error {
	if event.EventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event id is required")
	}

	status := paymentStatusFromProvider(event.Status)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":  event.EventID,
		"reference": event.PaymentReference,
		"status":    status.String(),
	})

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claims := s.claims.WithTx(tx)
		claimed, err := claims.Claim(ctx, webhooks.Event{
			Source:      enums.WebhookSourcePaymob,
			EventID:     event.EventID,
			EventType:   "TRANSACTION",
			EventStatus: event.Status,
			RawPayload:  event.RawPayload,
		})
		if err != nil {
			return err
		}
		if !claimed {
			s.logg.Info(logCtx, "payment webhook replay ignored")
			return nil
		}

		txn, err := s.repo.WithTx(tx).FindByReference(ctx, event.PaymentReference)
		if err != nil {
			return err
		}
		if txn == nil {
			s.logg.Warn(logCtx, "payment webhook referenced no known transaction")
			return claims.MarkProcessed(ctx, enums.WebhookSourcePaymob, event.EventID)
		}

		raw := types.JSONMap{}
		if len(event.RawPayload) > 0 {
			raw["body"] = string(event.RawPayload)
		}
		txnFields := map[string]any{
			"status":      status,
			"raw_payload": &raw,
		}
		if event.ProviderTxnID != "" {
			txnFields["provider_txn_id"] = event.ProviderTxnID
		}
		if status == enums.PaymentStatusPaid {
			txnFields["settled"] = true
		}
		if err := s.repo.WithTx(tx).Update(ctx, txn.ID, txnFields); err != nil {
			return err
		}

		orderFields := map[string]any{"payment_status": status}
		if event.ProviderTxnID != "" {
			orderFields["transaction_id"] = event.ProviderTxnID
		}
		if err := s.orders.WithTx(tx).UpdateFields(ctx, txn.OrderID, orderFields); err != nil {
			return err
		}

		if status == enums.PaymentStatusPaid {
			err := s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentSettled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   txn.OrderID,
				Data: payloads.PaymentSettledEvent{
					OrderID:          txn.OrderID,
					PaymentReference: txn.PaymentReference,
					ProviderTxnID:    event.ProviderTxnID,
					Amount:           txn.Amount,
					Currency:         txn.Currency,
				},
			})
			if err != nil {
				return err
			}
		}

		s.logg.Info(logCtx, "payment webhook applied")
		return claims.MarkProcessed(ctx, enums.WebhookSourcePaymob, event.EventID)
	})
}

func (s *service) DetermineRefundType(ctx context.Context, orderID uuid.UUID) (enums.RefundType, error) {
	txn, err := s.repo.FindLatestByOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if txn == nil || txn.ProviderTxnID == nil || *txn.ProviderTxnID == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no transaction found for order")
	}
	if txn.Settled {
		return enums.RefundTypeRefund, nil
	}
	return enums.RefundTypeVoid, nil
}

func (s *service) Void(ctx context.Context, orderID uuid.UUID) (*ProviderResult, error) {
	return s.reverse(ctx, orderID, enums.RefundTypeVoid)
}

func (s *service) Refund(ctx context.Context, orderID uuid.UUID) (*ProviderResult, error) {
	return s.reverse(ctx, orderID, enums.RefundTypeRefund)
}

func (s *service) reverse(ctx context.Context, orderID uuid.UUID, kind enums.RefundType) (*ProviderResult, error) {
	txn, err := s.repo.FindLatestByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if txn == nil || txn.ProviderTxnID == nil || *txn.ProviderTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no transaction found for order")
	}

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway authentication failed")
	}

	var resp *paymob.TransactionResponse
	var target enums.PaymentStatus
	switch kind {
	case enums.RefundTypeVoid:
		resp, err = s.gateway.Void(ctx, token, *txn.ProviderTxnID)
		target = enums.PaymentStatusVoided
	case enums.RefundTypeRefund:
		resp, err = s.gateway.Refund(ctx, token, *txn.ProviderTxnID, paymob.AmountCents(txn.Amount))
		target = enums.PaymentStatusRefunded
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown refund type")
	}
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway rejected the reversal").
			WithDetails(map[string]any{"type": kind})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, txn.ID, map[string]any{"status": target}); err != nil {
			return err
		}
		return s.orders.WithTx(tx).UpdateFields(ctx, orderID, map[string]any{"payment_status": target})
	})
	if err != nil {
		return nil, err
	}

	return &ProviderResult{
		Success:       true,
		TransactionID: *txn.ProviderTxnID,
		Status:        target,
		ProcessedAt:   time.Now(),
	}, nil
}

func paymentStatusFromProvider(status string) enums.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "paid", "captured":
		return enums.PaymentStatusPaid
	case "failed", "declined", "voided", "refunded":
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}
