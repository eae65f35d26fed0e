package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

// Scheduler creates the per-vendor payout rows for a new order.
type Scheduler interface {
	// Schedule groups the order's items by vendor and persists one pending
	// payout per vendor inside the caller's transaction. Row-level failures
	// are logged and tolerated; a missing payout is operator-remediable,
	// rolling back a placed order is not.
	Schedule(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error
}

// SchedulerParams wires the scheduler dependencies.
type SchedulerParams struct {
	Repo        Repository
	Vendors     VendorLookup
	Logger      *logger.Logger
	HoldPeriod  time.Duration
	DefaultRate decimal.Decimal
}

type scheduler struct {
	repo        Repository
	vendors     VendorLookup
	logg        *logger.Logger
	holdPeriod  time.Duration
	defaultRate decimal.Decimal
}

// NewScheduler validates dependencies and returns the payout scheduler.
func NewScheduler(params SchedulerParams) (Scheduler, error) {
	if params.Repo == nil {
		return nil, errors.New("payout repository is required")
	}
	if params.Vendors == nil {
		return nil, errors.New("vendor lookup is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.HoldPeriod <= 0 {
		params.HoldPeriod = 168 * time.Hour
	}
	return &scheduler{
		repo:        params.Repo,
		vendors:     params.Vendors,
		logg:        params.Logger,
		holdPeriod:  params.HoldPeriod,
		defaultRate: params.DefaultRate,
	}, nil
}

func (s *scheduler) Schedule(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if order == nil {
		return errors.New("order is required")
	}

	grossByVendor := make(map[uuid.UUID]decimal.Decimal)
	vendorIDs := make([]uuid.UUID, 0, 4)
	for _, item := range items {
		if _, seen := grossByVendor[item.VendorID]; !seen {
			vendorIDs = append(vendorIDs, item.VendorID)
			grossByVendor[item.VendorID] = decimal.Zero
		}
		grossByVendor[item.VendorID] = grossByVendor[item.VendorID].Add(item.LineTotal)
	}
	if len(vendorIDs) == 0 {
		return nil
	}

	vendors, err := s.vendors.WithTx(tx).FindByIDs(ctx, vendorIDs)
	if err != nil {
		s.logg.Error(ctx, "loading vendors for payout scheduling", err)
		return nil
	}

	repo := s.repo.WithTx(tx)
	release := time.Now().Add(s.holdPeriod)

	for _, vendorID := range vendorIDs {
		gross := grossByVendor[vendorID]
		vendor, ok := vendors[vendorID]
		if !ok {
			logCtx := s.logg.WithField(ctx, "vendor_id", vendorID.String())
			s.logg.Warn(logCtx, "payout scheduling skipped unknown vendor")
			continue
		}

		rate := s.defaultRate
		if vendor.CommissionRate != nil {
			rate = *vendor.CommissionRate
		}
		commission := gross.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		net := gross.Sub(commission)

		payout := models.VendorPayout{
			ID:               uuid.New(),
			VendorID:         vendorID,
			OrderID:          order.ID,
			Gross:            gross,
			Commission:       commission,
			Net:              net,
			CommissionRate:   rate,
			ScheduledRelease: release,
		}
		if bank := vendor.BankDetails(); bank != nil {
			payout.BankAccount = bank.AccountNumber
			payout.BankRouting = bank.RoutingNumber
			payout.BankHolder = bank.HolderName
			payout.BankName = bank.BankName
		}

		if err := repo.Create(ctx, &payout); err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"vendor_id": vendorID.String(),
				"order_id":  order.ID.String(),
			})
			s.logg.Error(logCtx, "creating vendor payout row", err)
			continue
		}
	}
	return nil
}
