package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
)

// VendorLookup resolves vendor rows for commission and bank snapshotting.
type VendorLookup interface {
	WithTx(tx *gorm.DB) VendorLookup
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Vendor, error)
}

type vendorLookup struct {
	db *gorm.DB
}

// NewVendorLookup builds a vendor lookup bound to the provided DB.
func NewVendorLookup(db *gorm.DB) VendorLookup {
	return &vendorLookup{db: db}
}

func (r *vendorLookup) WithTx(tx *gorm.DB) VendorLookup {
	if tx == nil {
		return r
	}
	return &vendorLookup{db: tx}
}

func (r *vendorLookup) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Vendor, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Vendor{}, nil
	}
	var rows []models.Vendor
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Vendor, len(rows))
	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}
