package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/karimadly/soukly-backend/pkg/enums"
)

// CartRecord is an open cart, owned by a user id or by an opaque guest token.
type CartRecord struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID     *uuid.UUID       `gorm:"column:user_id;type:uuid;index"`
	GuestToken *string          `gorm:"column:guest_token;index"`
	Status     enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Items      []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
