package models

import (
	"time"

	"github.com/google/uuid"
)

// User carries the slice of account state the order path needs: the loyalty
// points balance and the order counter used for first-order detection.
// Authentication and profile management live elsewhere.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	RewardPoints int       `gorm:"column:reward_points;not null;default:0"`
	OrdersCount  int       `gorm:"column:orders_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
