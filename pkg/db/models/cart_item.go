package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product/color/size selection inside a cart. Prices are not
// stored here; the order builder snapshots live pricing at checkout.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Color     string    `gorm:"column:color;not null"`
	Size      string    `gorm:"column:size;not null"`
	Qty       int       `gorm:"column:qty;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
