package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/karimadly/soukly-backend/api/middleware"
	"github.com/karimadly/soukly-backend/api/responses"
	"github.com/karimadly/soukly-backend/api/validators"
	"github.com/karimadly/soukly-backend/internal/orders"
	"github.com/karimadly/soukly-backend/internal/payments"
	"github.com/karimadly/soukly-backend/internal/refunds"
	"github.com/karimadly/soukly-backend/pkg/enums"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/pagination"
	"github.com/karimadly/soukly-backend/pkg/types"
)

type orderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items           []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address      `json:"shipping_address" validate:"required"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	VoucherCode     string             `json:"voucher_code"`
	PointsToRedeem  int                `json:"points_to_redeem" validate:"min=0"`
	GuestToken      string             `json:"guest_token"`
	CustomerEmail   string             `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   string             `json:"customer_phone"`
}

type paymentSessionView struct {
	PaymentKey       string `json:"payment_key"`
	CheckoutURL      string `json:"checkout_url"`
	PaymentReference string `json:"payment_reference"`
	ExpiresAt        string `json:"expires_at"`
}

type createOrderResponse struct {
	Order        orderView           `json:"order"`
	Payment      *paymentSessionView `json:"payment,omitempty"`
	PaymentError string              `json:"payment_error,omitempty"`
}

// CreateOrder runs authenticated checkout. A gateway order additionally
// opens a payment session; session failure does not undo the order, the
// client retries via the session endpoint.
func CreateOrder(ordersSvc orders.Service, paymentsSvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		createOrder(w, r, ordersSvc, paymentsSvc, logg, &userID)
	}
}

// CreateGuestOrder is the unauthenticated variant; the guest token links
// the cart to clear and points redemption is rejected downstream.
func CreateGuestOrder(ordersSvc orders.Service, paymentsSvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		createOrder(w, r, ordersSvc, paymentsSvc, logg, nil)
	}
}

func createOrder(w http.ResponseWriter, r *http.Request, ordersSvc orders.Service, paymentsSvc payments.Service, logg *logger.Logger, userID *uuid.UUID) {
	var req createOrderRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
		return
	}

	lines := make([]orders.OrderLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, orders.OrderLineInput{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Qty:       item.Qty,
		})
	}

	order, err := ordersSvc.Create(r.Context(), orders.CreateOrderInput{
		UserID:          userID,
		GuestToken:      req.GuestToken,
		Items:           lines,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
		VoucherCode:     req.VoucherCode,
		PointsToRedeem:  req.PointsToRedeem,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	resp := createOrderResponse{Order: renderOrder(order)}
	if method.RequiresGateway() && paymentsSvc != nil {
		session, sessionErr := paymentsSvc.CreateSession(r.Context(), payments.CreateSessionInput{
			OrderID:       order.ID,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
		})
		if sessionErr != nil {
			if logg != nil {
				logg.Error(logg.WithOrderID(r.Context(), order.ID.String()), "payment session setup failed after checkout", sessionErr)
			}
			resp.PaymentError = "payment session could not be created; retry via the payment session endpoint"
		} else {
			resp.Payment = renderSession(session)
		}
	}

	responses.WriteSuccessStatus(w, http.StatusCreated, resp)
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type cancelOrderResponse struct {
	OrderStatus string `json:"order_status"`
	RefundType  string `json:"refund_type"`
	Refund      any    `json:"refund,omitempty"`
}

func CancelOrder(refundsSvc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := refundsSvc.Cancel(r.Context(), refunds.CancelInput{
			OrderID: orderID,
			UserID:  &userID,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cancelOrderResponse{
			OrderStatus: result.OrderStatus.String(),
			RefundType:  string(result.RefundType),
			Refund:      result.Refund,
		})
	}
}

func GetOrder(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := ordersSvc.Get(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

type listOrdersResponse struct {
	Orders     []orderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func ListOrders(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := ordersSvc.List(r.Context(), orders.ListInput{
			UserID: userID,
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]orderView, 0, len(rows))
		for i := range rows {
			views = append(views, renderOrder(&rows[i]))
		}
		responses.WriteSuccess(w, listOrdersResponse{Orders: views, NextCursor: next})
	}
}

type updateStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number"`
}

func AdminUpdateOrderStatus(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := ordersSvc.UpdateStatus(r.Context(), orders.UpdateStatusInput{
			OrderID:        orderID,
			Status:         status,
			TrackingNumber: req.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

func VendorUpdateOrderStatus(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := ordersSvc.VendorUpdateStatus(r.Context(), orders.VendorUpdateStatusInput{
			VendorID:       vendorID,
			OrderID:        orderID,
			Status:         status,
			TrackingNumber: req.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderOrder(order))
	}
}

func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	}
	return id, nil
}

func currentVendorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.VendorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid vendor context")
	}
	return id, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"param": param})
	}
	return id, nil
}
