package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
)

// Repository is the storage surface for stock buckets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBucket(ctx context.Context, productID uuid.UUID, color, size string) (*models.InventoryItem, error)
	// DecrementStock runs a conditional decrement and reports how many rows
	// matched. Zero rows means the bucket is missing or short on stock.
	DecrementStock(ctx context.Context, productID uuid.UUID, color, size string, qty int) (int64, error)
	IncrementStock(ctx context.Context, productID uuid.UUID, color, size string, qty int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBucket(ctx context.Context, productID uuid.UUID, color, size string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, color, size string, qty int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND color = ? AND size = ? AND stock >= ?", productID, color, size, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected, res.Error
}

func (r *repository) IncrementStock(ctx context.Context, productID uuid.UUID, color, size string, qty int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		Update("stock", gorm.Expr("stock + ?", qty))
	return res.RowsAffected, res.Error
}
