package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/karimadly/soukly-backend/api/middleware"
	"github.com/karimadly/soukly-backend/api/responses"
	"github.com/karimadly/soukly-backend/api/validators"
	"github.com/karimadly/soukly-backend/internal/cart"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

const guestTokenHeader = "X-Guest-Token"

// cartOwner resolves the cart owner: the authenticated user when a token
// was presented, otherwise the guest token header.
func cartOwner(r *http.Request) (cart.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return cart.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
		}
		return cart.Owner{UserID: &id}, nil
	}
	token := strings.TrimSpace(r.Header.Get(guestTokenHeader))
	if token == "" {
		return cart.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "guest token or credentials required")
	}
	return cart.Owner{GuestToken: token}, nil
}

func CartFetch(cartSvc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := cartSvc.GetOrCreate(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(record))
	}
}

type cartAddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

func CartAddItem(cartSvc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cartAddItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := cartSvc.AddItem(r.Context(), owner, cart.AddItemInput{
			ProductID: req.ProductID,
			Color:     req.Color,
			Size:      req.Size,
			Qty:       req.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, renderCart(record))
	}
}

type cartUpdateItemRequest struct {
	Qty int `json:"qty" validate:"required,min=1"`
}

func CartUpdateItem(cartSvc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cartUpdateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := cartSvc.UpdateItemQty(r.Context(), owner, itemID, req.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(record))
	}
}

func CartRemoveItem(cartSvc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := cartSvc.RemoveItem(r.Context(), owner, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(record))
	}
}

type cartMergeRequest struct {
	GuestToken string `json:"guest_token" validate:"required"`
}

// CartMerge folds a guest cart into the caller's cart after login.
func CartMerge(cartSvc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cartMergeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := cartSvc.MergeOnLogin(r.Context(), req.GuestToken, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(record))
	}
}
