package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/karimadly/soukly-backend/api/responses"
	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/internal/payouts"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/paymob"
)

const signatureHeader = "x-signature"

// PaymobWebhook handles acceptance-gateway transaction callbacks. A bad
// signature is the only rejection; once the payload is authenticated the
// response is always 200 so the gateway stops retrying, and processing
// failures are logged server-side.
func PaymobWebhook(paymentsSvc payments.Service, hmacSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		var callback struct {
			Type string          `json:"type"`
			Obj  json.RawMessage `json:"obj"`
		}
		if err := json.Unmarshal(raw, &callback); err != nil || len(callback.Obj) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "malformed webhook payload"))
			return
		}

		flat, err := flattenJSON(callback.Obj)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		provided := r.Header.Get(signatureHeader)
		if !paymob.VerifyTransactionSignature(hmacSecret, flat, provided) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event := payments.WebhookEvent{
			EventID:          flat["id"],
			ProviderTxnID:    flat["id"],
			PaymentReference: flat["order.merchant_order_id"],
			Status:           transactionStatus(flat),
			RawPayload:       raw,
		}
		if cents, parseErr := strconv.ParseInt(flat["amount_cents"], 10, 64); parseErr == nil {
			event.AmountCents = cents
		}

		if err := paymentsSvc.ProcessWebhookEvent(r.Context(), event); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "paymob webhook processing failed", err)
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// PayoutWebhook handles disbursement callbacks with the same discipline:
// 401 only on signature failure, 200 for everything after.
func PayoutWebhook(reconciler payouts.Reconciler, hmacSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		provided := r.Header.Get(signatureHeader)
		if !paymob.VerifySignature(hmacSecret, []string{string(raw)}, provided) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var payload struct {
			TransactionID      string `json:"transaction_id"`
			MerchantReference  string `json:"merchant_reference"`
			DisbursementStatus string `json:"disbursement_status"`
			StatusDescription  string `json:"status_description"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "malformed payout webhook payload", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
			return
		}

		err = reconciler.ProcessWebhookEvent(r.Context(), payouts.WebhookEvent{
			EventID:           payload.TransactionID,
			MerchantReference: payload.MerchantReference,
			ProviderTxnID:     payload.TransactionID,
			Status:            payload.DisbursementStatus,
			StatusDescription: payload.StatusDescription,
			RawPayload:        raw,
		})
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "payout webhook processing failed", err)
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// transactionStatus reduces the callback flags to the provider status
// vocabulary the payment service maps.
func transactionStatus(flat map[string]string) string {
	switch {
	case flat["is_voided"] == "true":
		return "voided"
	case flat["is_refunded"] == "true":
		return "refunded"
	case flat["success"] == "true":
		return "success"
	case flat["pending"] == "true":
		return "pending"
	default:
		return "declined"
	}
}

// flattenJSON flattens a JSON object into dotted string paths the way the
// gateway concatenates fields for signing: booleans as true/false, numbers
// verbatim, null as empty string. Arrays are not part of the signed set
// and are skipped.
func flattenJSON(raw json.RawMessage) (map[string]string, error) {
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	var obj map[string]any
	if err := decoder.Decode(&obj); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	flattenInto(flat, "", obj)
	return flat, nil
}

func flattenInto(flat map[string]string, prefix string, obj map[string]any) {
	for key, value := range obj {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch typed := value.(type) {
		case map[string]any:
			flattenInto(flat, path, typed)
		case []any:
			continue
		case nil:
			flat[path] = ""
		case bool:
			flat[path] = strconv.FormatBool(typed)
		case json.Number:
			flat[path] = typed.String()
		case string:
			flat[path] = typed
		default:
			flat[path] = fmt.Sprintf("%v", typed)
		}
	}
}
