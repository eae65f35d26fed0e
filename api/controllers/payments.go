package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/karimadly/soukly-backend/api/responses"
	"github.com/karimadly/soukly-backend/api/validators"
	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

type createSessionRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	CustomerEmail string    `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string    `json:"customer_phone"`
}

// CreatePaymentSession opens (or reopens) a hosted checkout for a
// gateway order. Safe to retry; each call issues a fresh reference.
func CreatePaymentSession(paymentsSvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := currentUserID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := paymentsSvc.CreateSession(r.Context(), payments.CreateSessionInput{
			OrderID:       req.OrderID,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderSession(session))
	}
}

func renderSession(session *payments.Session) *paymentSessionView {
	if session == nil {
		return nil
	}
	return &paymentSessionView{
		PaymentKey:       session.PaymentKey,
		CheckoutURL:      session.CheckoutURL,
		PaymentReference: session.PaymentReference,
		ExpiresAt:        session.ExpiresAt.Format(time.RFC3339),
	}
}
