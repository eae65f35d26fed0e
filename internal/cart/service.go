package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

// Owner identifies who a cart belongs to: an authenticated user or an
// anonymous browser holding an opaque token. Exactly one side must be set.
type Owner struct {
	UserID     *uuid.UUID
	GuestToken string
}

func (o Owner) validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasGuest := strings.TrimSpace(o.GuestToken) != ""
	if hasUser == hasGuest {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be a user or a guest token, not both")
	}
	return nil
}

// AddItemInput is one product selection to put in the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	Qty       int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages cart lifecycle around checkout.
type Service interface {
	GetOrCreate(ctx context.Context, owner Owner) (*models.CartRecord, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (*models.CartRecord, error)
	UpdateItemQty(ctx context.Context, owner Owner, itemID uuid.UUID, qty int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*models.CartRecord, error)
	// MergeOnLogin folds a guest cart into the user's cart. The merged items
	// are saved before the guest cart is marked merged, so a crash between
	// the two steps duplicates nothing and loses nothing.
	MergeOnLogin(ctx context.Context, guestToken string, userID uuid.UUID) (*models.CartRecord, error)
	// ClearAfterOrder marks the owner's active cart converted inside the
	// checkout transaction.
	ClearAfterOrder(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, guestToken string) error
}

// ServiceParams wires the cart service dependencies.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Logger        *logger.Logger
	MaxQtyPerLine int
}

type service struct {
	repo       Repository
	tx         txRunner
	logg       *logger.Logger
	maxPerLine int
}

// NewService validates dependencies and returns the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("cart repository is required")
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
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		logg:       params.Logger,
		maxPerLine: params.MaxQtyPerLine,
	}, nil
}

func (s *service) GetOrCreate(ctx context.Context, owner Owner) (*models.CartRecord, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	cart, err := s.findActive(ctx, s.repo, owner)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	cart = &models.CartRecord{
		ID:     uuid.New(),
		Status: enums.CartStatusActive,
	}
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		cart.UserID = owner.UserID
	} else {
		token := owner.GuestToken
		cart.GuestToken = &token
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*models.CartRecord, error) {
	if err := s.validateQty(input.Qty); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	cart, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindBucket(ctx, cart.ID, input.ProductID, input.Color, input.Size)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		merged := existing.Qty + input.Qty
		if merged > s.maxPerLine {
			merged = s.maxPerLine
		}
		existing.Qty = merged
		if err := s.repo.SaveItem(ctx, existing); err != nil {
			return nil, err
		}
	} else {
		item := models.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: input.ProductID,
			Color:     input.Color,
			Size:      input.Size,
			Qty:       input.Qty,
		}
		if err := s.repo.SaveItem(ctx, &item); err != nil {
			return nil, err
		}
	}
	return s.findActive(ctx, s.repo, owner)
}

func (s *service) UpdateItemQty(ctx context.Context, owner Owner, itemID uuid.UUID, qty int) (*models.CartRecord, error) {
	if err := s.validateQty(qty); err != nil {
		return nil, err
	}
	_, item, err := s.ownedItem(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	item.Qty = qty
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	return s.findActive(ctx, s.repo, owner)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*models.CartRecord, error) {
	cart, _, err := s.ownedItem(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.findActive(ctx, s.repo, owner)
}

func (s *service) MergeOnLogin(ctx context.Context, guestToken string, userID uuid.UUID) (*models.CartRecord, error) {
	if strings.TrimSpace(guestToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest token is required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var merged *models.CartRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestCart, err := repo.FindActiveByGuest(ctx, guestToken)
		if err != nil {
			return err
		}

		userCart, err := repo.FindActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if userCart == nil {
			userCart = &models.CartRecord{
				ID:     uuid.New(),
				UserID: &userID,
				Status: enums.CartStatusActive,
			}
			if err := repo.Create(ctx, userCart); err != nil {
				return err
			}
		}

		if guestCart == nil {
			merged = userCart
			return nil
		}

		// save into the user cart first, only then retire the guest cart
		for _, guestItem := range guestCart.Items {
			existing, err := repo.FindBucket(ctx, userCart.ID, guestItem.ProductID, guestItem.Color, guestItem.Size)
			if err != nil {
				return err
			}
			if existing != nil {
				qty := existing.Qty + guestItem.Qty
				if qty > s.maxPerLine {
					qty = s.maxPerLine
				}
				existing.Qty = qty
				if err := repo.SaveItem(ctx, existing); err != nil {
					return err
				}
				continue
			}
			item := models.CartItem{
				ID:        uuid.New(),
				CartID:    userCart.ID,
				ProductID: guestItem.ProductID,
				Color:     guestItem.Color,
				Size:      guestItem.Size,
				Qty:       guestItem.Qty,
			}
			if err := repo.SaveItem(ctx, &item); err != nil {
				return err
			}
		}

		if err := repo.UpdateStatus(ctx, guestCart.ID, enums.CartStatusMerged); err != nil {
			return err
		}

		merged, err = repo.FindActiveByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *service) ClearAfterOrder(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, guestToken string) error {
	repo := s.repo.WithTx(tx)

	var cart *models.CartRecord
	var err error
	switch {
	case userID != nil && *userID != uuid.Nil:
		cart, err = repo.FindActiveByUser(ctx, *userID)
	case strings.TrimSpace(guestToken) != "":
		cart, err = repo.FindActiveByGuest(ctx, guestToken)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	return repo.UpdateStatus(ctx, cart.ID, enums.CartStatusConverted)
}

func (s *service) findActive(ctx context.Context, repo Repository, owner Owner) (*models.CartRecord, error) {
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		return repo.FindActiveByUser(ctx, *owner.UserID)
	}
	return repo.FindActiveByGuest(ctx, owner.GuestToken)
}

func (s *service) ownedItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*models.CartRecord, *models.CartItem, error) {
	if err := owner.validate(); err != nil {
		return nil, nil, err
	}
	cart, err := s.findActive(ctx, s.repo, owner)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return cart, item, nil
}

func (s *service) validateQty(qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if qty > s.maxPerLine {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit").
			WithDetails(map[string]any{"max": s.maxPerLine})
	}
	return nil
}
