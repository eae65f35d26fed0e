package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/internal/payouts"
	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/paymob"
)

const testHMACSecret = "hmac-test-secret"

type stubPaymentsService struct {
	events     []payments.WebhookEvent
	processErr error
}

func (s *stubPaymentsService) CreateSession(context.Context, payments.CreateSessionInput) (*payments.Session, error) {
	return nil, errors.New("not used")
}

func (s *stubPaymentsService) ProcessWebhookEvent(_ context.Context, event payments.WebhookEvent) error {
	s.events = append(s.events, event)
	return s.processErr
}

func (s *stubPaymentsService) DetermineRefundType(context.Context, uuid.UUID) (enums.RefundType, error) {
	return enums.RefundTypeNone, nil
}

func (s *stubPaymentsService) Void(context.Context, uuid.UUID) (*payments.ProviderResult, error) {
	return nil, errors.New("not used")
}

func (s *stubPaymentsService) Refund(context.Context, uuid.UUID) (*payments.ProviderResult, error) {
	return nil, errors.New("not used")
}

type stubReconciler struct {
	events     []payouts.WebhookEvent
	processErr error
}

func (s *stubReconciler) ProcessWebhookEvent(_ context.Context, event payouts.WebhookEvent) error {
	s.events = append(s.events, event)
	return s.processErr
}

func transactionCallback(t *testing.T, success bool, reference string) ([]byte, string) {
	t.Helper()
	obj := map[string]any{
		"id":           987654,
		"success":      success,
		"pending":      false,
		"is_refunded":  false,
		"is_voided":    false,
		"amount_cents": 21000,
		"currency":     "EGP",
		"order": map[string]any{
			"id":                111,
			"merchant_order_id": reference,
		},
	}
	body, err := json.Marshal(map[string]any{"type": "TRANSACTION", "obj": obj})
	if err != nil {
		t.Fatalf("marshal callback: %v", err)
	}

	objRaw, _ := json.Marshal(obj)
	flat, err := flattenJSON(objRaw)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	signature := paymob.ComputeSignature(testHMACSecret, paymob.TransactionSignatureValues(flat))
	return body, signature
}

func TestPaymobWebhookRejectsBadSignature(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc := &stubPaymentsService{}
	handler := PaymobWebhook(svc, testHMACSecret, logg)

	body, _ := transactionCallback(t, true, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymob", bytes.NewReader(body))
	req.Header.Set(signatureHeader, "deadbeef")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("service called despite bad signature")
	}
}

func TestPaymobWebhookMapsVerifiedCallback(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc := &stubPaymentsService{}
	handler := PaymobWebhook(svc, testHMACSecret, logg)

	reference := uuid.NewString()
	body, signature := transactionCallback(t, true, reference)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymob", bytes.NewReader(body))
	req.Header.Set(signatureHeader, signature)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(svc.events) != 1 {
		t.Fatalf("events = %d", len(svc.events))
	}
	event := svc.events[0]
	if event.EventID != "987654" || event.ProviderTxnID != "987654" {
		t.Fatalf("ids = %q / %q", event.EventID, event.ProviderTxnID)
	}
	if event.PaymentReference != reference {
		t.Fatalf("reference = %q", event.PaymentReference)
	}
	if event.Status != "success" {
		t.Fatalf("status = %q", event.Status)
	}
	if event.AmountCents != 21000 {
		t.Fatalf("amount = %d", event.AmountCents)
	}
}

func TestPaymobWebhookSwallowsProcessingFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc := &stubPaymentsService{processErr: errors.New("db down")}
	handler := PaymobWebhook(svc, testHMACSecret, logg)

	body, signature := transactionCallback(t, false, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymob", bytes.NewReader(body))
	req.Header.Set(signatureHeader, signature)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after signature acceptance", rec.Code)
	}
}

func TestPayoutWebhookVerifiesRawBodySignature(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	reconciler := &stubReconciler{}
	handler := PayoutWebhook(reconciler, testHMACSecret, logg)

	reference := uuid.NewString()
	body, _ := json.Marshal(map[string]any{
		"transaction_id":      "prov-77",
		"merchant_reference":  reference,
		"disbursement_status": "successful",
		"status_description":  "done",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payouts", bytes.NewReader(body))
	req.Header.Set(signatureHeader, "bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature status = %d", rec.Code)
	}

	signature := paymob.ComputeSignature(testHMACSecret, []string{string(body)})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payouts", bytes.NewReader(body))
	req.Header.Set(signatureHeader, signature)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(reconciler.events) != 1 {
		t.Fatalf("events = %d", len(reconciler.events))
	}
	event := reconciler.events[0]
	if event.MerchantReference != reference || event.Status != "successful" || event.ProviderTxnID != "prov-77" {
		t.Fatalf("event = %+v", event)
	}
}
