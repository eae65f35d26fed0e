package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
)

// ProductLookup resolves catalog rows for line snapshotting.
type ProductLookup interface {
	WithTx(tx *gorm.DB) ProductLookup
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type productLookup struct {
	db *gorm.DB
}

// NewProductLookup builds a product lookup bound to the provided DB.
func NewProductLookup(db *gorm.DB) ProductLookup {
	return &productLookup{db: db}
}

func (r *productLookup) WithTx(tx *gorm.DB) ProductLookup {
	if tx == nil {
		return r
	}
	return &productLookup{db: tx}
}

func (r *productLookup) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Product{}, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// UserStore reads and adjusts the account state checkout touches.
type UserStore interface {
	WithTx(tx *gorm.DB) UserStore
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ApplyOrderEffects adjusts the points balance by delta and bumps the
	// order counter, in one UPDATE.
	ApplyOrderEffects(ctx context.Context, id uuid.UUID, pointsDelta int) error
}

type userStore struct {
	db *gorm.DB
}

// NewUserStore builds a user store bound to the provided DB.
func NewUserStore(db *gorm.DB) UserStore {
	return &userStore{db: db}
}

func (r *userStore) WithTx(tx *gorm.DB) UserStore {
	if tx == nil {
		return r
	}
	return &userStore{db: tx}
}

func (r *userStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userStore) ApplyOrderEffects(ctx context.Context, id uuid.UUID, pointsDelta int) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reward_points": gorm.Expr("reward_points + ?", pointsDelta),
			"orders_count":  gorm.Expr("orders_count + 1"),
		}).Error
}
