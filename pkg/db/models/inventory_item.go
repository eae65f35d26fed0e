package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is the stock counter for one product/color/size bucket.
// Stock never goes negative; the decrement is a conditional update executed
// inside the order-creation transaction.
type InventoryItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_inventory_bucket"`
	Color     string    `gorm:"column:color;not null;uniqueIndex:ux_inventory_bucket"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:ux_inventory_bucket"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
