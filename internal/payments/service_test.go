package payments

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/internal/orders"
	"github.com/karimadly/soukly-backend/internal/webhooks"
	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	apperrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/outbox"
	"github.com/karimadly/soukly-backend/pkg/paymob"
	"github.com/karimadly/soukly-backend/pkg/types"
)

type gormTx struct{ db *gorm.DB }

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type stubGateway struct {
	authErr     error
	registerErr error
	keyErr      error
	voidResp    *paymob.TransactionResponse
	refundResp  *paymob.TransactionResponse
	voidErr     error
	refundErr   error

	registeredAmount int64
	refundedAmount   int64
}

func (g *stubGateway) Authenticate(ctx context.Context) (string, error) {
	if g.authErr != nil {
		return "", g.authErr
	}
	return "token", nil
}

func (g *stubGateway) RegisterOrder(ctx context.Context, params paymob.RegisterOrderParams) (int64, error) {
	if g.registerErr != nil {
		return 0, g.registerErr
	}
	g.registeredAmount = params.AmountCents
	return 4242, nil
}

func (g *stubGateway) PaymentKey(ctx context.Context, params paymob.PaymentKeyParams) (string, error) {
	if g.keyErr != nil {
		return "", g.keyErr
	}
	return "pay-key", nil
}

func (g *stubGateway) IFrameURL(paymentToken string) string {
	return "https://checkout.example/" + paymentToken
}

func (g *stubGateway) Refund(ctx context.Context, authToken string, providerTxnID string, amountCents int64) (*paymob.TransactionResponse, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refundedAmount = amountCents
	if g.refundResp != nil {
		return g.refundResp, nil
	}
	return &paymob.TransactionResponse{ID: 9, Success: true}, nil
}

func (g *stubGateway) Void(ctx context.Context, authToken string, providerTxnID string) (*paymob.TransactionResponse, error) {
	if g.voidErr != nil {
		return nil, g.voidErr
	}
	if g.voidResp != nil {
		return g.voidResp, nil
	}
	return &paymob.TransactionResponse{ID: 8, Success: true}, nil
}

type fixture struct {
	db      *gorm.DB
	svc     Service
	gateway *stubGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentTransaction{},
		&models.WebhookLog{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	gateway := &stubGateway{}
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(db),
		Orders:        orders.NewRepository(db),
		Gateway:       gateway,
		Claims:        webhooks.NewClaimStore(db),
		Outbox:        outbox.NewService(outbox.NewRepository(db), logg),
		Tx:            gormTx{db: db},
		Logger:        logg,
		SessionExpiry: time.Hour,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: db, svc: svc, gateway: gateway}
}

func (f *fixture) seedOrder(t *testing.T, method enums.PaymentMethod, total string) models.Order {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		OrderNumber:     time.Now().UnixNano(),
		Currency:        enums.CurrencyEGP,
		Subtotal:        decimal.RequireFromString(total),
		ShippingCharges: decimal.Zero,
		Discount:        decimal.Zero,
		Total:           decimal.RequireFromString(total),
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		ShippingAddress: types.Address{
			FullName: "Buyer", Line1: "12 St", City: "Cairo", Phone: "+2010",
		},
	}
	if err := f.db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func (f *fixture) seedTxn(t *testing.T, orderID uuid.UUID, settled bool, providerTxnID string) models.PaymentTransaction {
	t.Helper()
	txn := models.PaymentTransaction{
		ID:               uuid.New(),
		OrderID:          orderID,
		Provider:         providerName,
		PaymentReference: uuid.NewString(),
		Amount:           decimal.RequireFromString("150.00"),
		Currency:         enums.CurrencyEGP,
		Status:           enums.PaymentStatusPending,
		Settled:          settled,
	}
	if providerTxnID != "" {
		txn.ProviderTxnID = &providerTxnID
	}
	if settled {
		txn.Status = enums.PaymentStatusPaid
	}
	if err := f.db.Create(&txn).Error; err != nil {
		t.Fatalf("seed txn: %v", err)
	}
	return txn
}

func TestCreateSessionHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodBankTransfer, "150.50")

	session, err := f.svc.CreateSession(ctx, CreateSessionInput{
		OrderID:       order.ID,
		CustomerEmail: "buyer@example.com",
		CustomerPhone: "+201000000000",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.PaymentKey != "pay-key" {
		t.Fatalf("payment key = %q", session.PaymentKey)
	}
	if session.CheckoutURL != "https://checkout.example/pay-key" {
		t.Fatalf("checkout url = %q", session.CheckoutURL)
	}
	if f.gateway.registeredAmount != 15050 {
		t.Fatalf("registered cents = %d", f.gateway.registeredAmount)
	}

	txn, err := NewRepository(f.db).FindLatestByOrder(ctx, order.ID)
	if err != nil || txn == nil {
		t.Fatalf("transaction row missing: %v", err)
	}
	if txn.PaymentReference != session.PaymentReference {
		t.Fatal("reference mismatch between session and row")
	}
	if txn.Status != enums.PaymentStatusPending {
		t.Fatalf("txn status = %s", txn.Status)
	}

	var fresh models.Order
	f.db.First(&fresh, "id = ?", order.ID)
	if fresh.PaymentReference == nil || *fresh.PaymentReference != session.PaymentReference {
		t.Fatal("order payment_reference not recorded")
	}
}

func TestCreateSessionRejectsNonGatewayOrders(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.PaymentMethodCashOnDelivery, "100.00")

	_, err := f.svc.CreateSession(context.Background(), CreateSessionInput{OrderID: order.ID})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateSessionGatewayFailureLeavesNoRow(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.PaymentMethodBankTransfer, "100.00")
	f.gateway.registerErr = errors.New("gateway down")

	_, err := f.svc.CreateSession(context.Background(), CreateSessionInput{OrderID: order.ID})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}

	txn, err := NewRepository(f.db).FindLatestByOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("find txn: %v", err)
	}
	if txn != nil {
		t.Fatal("failed session must not persist a transaction")
	}
}

func TestWebhookMarksOrderPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodBankTransfer, "150.00")
	txn := f.seedTxn(t, order.ID, false, "")

	err := f.svc.ProcessWebhookEvent(ctx, WebhookEvent{
		EventID:          "evt-1",
		ProviderTxnID:    "ptx-1",
		PaymentReference: txn.PaymentReference,
		Status:           "captured",
		RawPayload:       []byte(`{"id":1}`),
	})
	if err != nil {
		t.Fatalf("process webhook: %v", err)
	}

	var freshTxn models.PaymentTransaction
	f.db.First(&freshTxn, "id = ?", txn.ID)
	if freshTxn.Status != enums.PaymentStatusPaid || !freshTxn.Settled {
		t.Fatalf("txn status=%s settled=%v", freshTxn.Status, freshTxn.Settled)
	}
	var freshOrder models.Order
	f.db.First(&freshOrder, "id = ?", order.ID)
	if freshOrder.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("order payment status = %s", freshOrder.PaymentStatus)
	}
	if freshOrder.TransactionID == nil || *freshOrder.TransactionID != "ptx-1" {
		t.Fatalf("order transaction id = %v", freshOrder.TransactionID)
	}

	var settledEvents int64
	f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPaymentSettled).Count(&settledEvents)
	if settledEvents != 1 {
		t.Fatalf("payment.settled events = %d", settledEvents)
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodBankTransfer, "150.00")
	txn := f.seedTxn(t, order.ID, false, "")

	paid := WebhookEvent{
		EventID:          "evt-dup",
		ProviderTxnID:    "ptx-1",
		PaymentReference: txn.PaymentReference,
		Status:           "success",
	}
	if err := f.svc.ProcessWebhookEvent(ctx, paid); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// replay flips nothing, even with a contradictory status
	replay := paid
	replay.Status = "declined"
	if err := f.svc.ProcessWebhookEvent(ctx, replay); err != nil {
		t.Fatalf("replay: %v", err)
	}

	var freshOrder models.Order
	f.db.First(&freshOrder, "id = ?", order.ID)
	if freshOrder.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("replay changed payment status to %s", freshOrder.PaymentStatus)
	}

	// distinct event for the same settled order must not duplicate the event
	second := paid
	second.EventID = "evt-dup-2"
	if err := f.svc.ProcessWebhookEvent(ctx, second); err != nil {
		t.Fatalf("second event: %v", err)
	}
	var settledEvents int64
	f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPaymentSettled).Count(&settledEvents)
	if settledEvents != 1 {
		t.Fatalf("payment.settled events = %d", settledEvents)
	}
}

func TestWebhookFailureStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodBankTransfer, "150.00")
	txn := f.seedTxn(t, order.ID, false, "")

	err := f.svc.ProcessWebhookEvent(ctx, WebhookEvent{
		EventID:          "evt-f",
		PaymentReference: txn.PaymentReference,
		Status:           "declined",
	})
	if err != nil {
		t.Fatalf("process webhook: %v", err)
	}

	var freshOrder models.Order
	f.db.First(&freshOrder, "id = ?", order.ID)
	if freshOrder.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("order payment status = %s", freshOrder.PaymentStatus)
	}
}

func TestWebhookUnknownReferenceIsTolerated(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ProcessWebhookEvent(context.Background(), WebhookEvent{
		EventID:          "evt-ghost",
		PaymentReference: uuid.NewString(),
		Status:           "success",
	})
	if err != nil {
		t.Fatalf("unknown reference must not error: %v", err)
	}
}

func TestDetermineRefundType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// no transaction at all
	bare := f.seedOrder(t, enums.PaymentMethodBankTransfer, "100.00")
	_, err := f.svc.DetermineRefundType(ctx, bare.ID)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	// unsettled charge voids
	pending := f.seedOrder(t, enums.PaymentMethodBankTransfer, "100.00")
	f.seedTxn(t, pending.ID, false, "ptx-a")
	kind, err := f.svc.DetermineRefundType(ctx, pending.ID)
	if err != nil || kind != enums.RefundTypeVoid {
		t.Fatalf("kind=%s err=%v", kind, err)
	}

	// captured charge refunds
	settled := f.seedOrder(t, enums.PaymentMethodBankTransfer, "100.00")
	f.seedTxn(t, settled.ID, true, "ptx-b")
	kind, err = f.svc.DetermineRefundType(ctx, settled.ID)
	if err != nil || kind != enums.RefundTypeRefund {
		t.Fatalf("kind=%s err=%v", kind, err)
	}
}

func TestRefundUpdatesStatusAndAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodBankTransfer, "150.00")
	f.seedTxn(t, order.ID, true, "ptx-1")

	result, err := f.svc.Refund(ctx, order.ID)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if !result.Success || result.Status != enums.PaymentStatusRefunded {
		t.Fatalf("result = %+v", result)
	}
	if f.gateway.refundedAmount != 15000 {
		t.Fatalf("refunded cents = %d", f.gateway.refundedAmount)
	}

	var freshOrder models.Order
	f.db.First(&freshOrder, "id = ?", order.ID)
	if freshOrder.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("order payment status = %s", freshOrder.PaymentStatus)
	}
}

func TestVoidRejectionSurfaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.PaymentMethodBankTransfer, "150.00")
	f.seedTxn(t, order.ID, false, "ptx-1")
	f.gateway.voidResp = &paymob.TransactionResponse{Success: false}

	_, err := f.svc.Void(ctx, order.ID)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}

	var freshOrder models.Order
	f.db.First(&freshOrder, "id = ?", order.ID)
	if freshOrder.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("rejected void must not change status, got %s", freshOrder.PaymentStatus)
	}
}
