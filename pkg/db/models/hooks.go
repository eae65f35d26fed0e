package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are assigned application-side so inserts behave the same on
// postgres and the sqlite test dialect. Explicit IDs from callers win.

func ensureID(id *uuid.UUID) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	return nil
}

func (m *CartItem) BeforeCreate(*gorm.DB) error           { return ensureID(&m.ID) }
func (m *CartRecord) BeforeCreate(*gorm.DB) error         { return ensureID(&m.ID) }
func (m *InventoryItem) BeforeCreate(*gorm.DB) error      { return ensureID(&m.ID) }
func (m *Order) BeforeCreate(*gorm.DB) error              { return ensureID(&m.ID) }
func (m *OrderItem) BeforeCreate(*gorm.DB) error          { return ensureID(&m.ID) }
func (m *OutboxEvent) BeforeCreate(*gorm.DB) error        { return ensureID(&m.ID) }
func (m *PaymentTransaction) BeforeCreate(*gorm.DB) error { return ensureID(&m.ID) }
func (m *Product) BeforeCreate(*gorm.DB) error            { return ensureID(&m.ID) }
func (m *User) BeforeCreate(*gorm.DB) error               { return ensureID(&m.ID) }
func (m *Vendor) BeforeCreate(*gorm.DB) error             { return ensureID(&m.ID) }
func (m *VendorPayout) BeforeCreate(*gorm.DB) error       { return ensureID(&m.ID) }
func (m *Voucher) BeforeCreate(*gorm.DB) error            { return ensureID(&m.ID) }
func (m *WebhookLog) BeforeCreate(*gorm.DB) error         { return ensureID(&m.ID) }
