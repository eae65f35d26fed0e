package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/types"
)

// Repository is the storage surface for vendor payout rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.VendorPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorPayout, error)
	// FindDue returns pending payouts whose release time has passed, oldest
	// first, up to limit.
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.VendorPayout, error)
	// ClaimProcessing flips pending → processing; false means another run
	// (or a cancellation) got there first.
	ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, providerPayoutID string, raw types.JSONMap) error
	// MarkRetry returns the row to pending with a new release time after a
	// provider failure.
	MarkRetry(ctx context.Context, id uuid.UUID, lastError string, nextRelease time.Time) error
	// MarkFailed parks the row terminally failed for operator attention.
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	// CancelPendingByOrder claws back money not yet released to vendors.
	CancelPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	// UpdateByMerchantReference reconciles a webhook-delivered state keyed by
	// the payout id we sent the provider.
	UpdateByMerchantReference(ctx context.Context, ref uuid.UUID, status enums.PayoutStatus, providerPayoutID string, raw types.JSONMap) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.VendorPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorPayout, error) {
	var rows []models.VendorPayout
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.VendorPayout, error) {
	var rows []models.VendorPayout
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_release <= ?", enums.PayoutStatusPending, now).
		Order("scheduled_release ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Update("status", enums.PayoutStatusProcessing)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, providerPayoutID string, raw types.JSONMap) error {
	updates := map[string]any{
		"status":             enums.PayoutStatusCompleted,
		"provider_payout_id": providerPayoutID,
		"completed_at":       time.Now(),
	}
	if raw != nil {
		updates["provider_response"] = &raw
	}
	return r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) MarkRetry(ctx context.Context, id uuid.UUID, lastError string, nextRelease time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            enums.PayoutStatusPending,
			"last_error":        lastError,
			"attempt_count":     gorm.Expr("attempt_count + 1"),
			"scheduled_release": nextRelease,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.PayoutStatusFailed,
			"last_error":    lastError,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

func (r *repository) CancelPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("order_id = ? AND status = ?", orderID, enums.PayoutStatusPending).
		Update("status", enums.PayoutStatusCancelled)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateByMerchantReference(ctx context.Context, ref uuid.UUID, status enums.PayoutStatus, providerPayoutID string, raw types.JSONMap) (int64, error) {
	updates := map[string]any{"status": status}
	if providerPayoutID != "" {
		updates["provider_payout_id"] = providerPayoutID
	}
	if raw != nil {
		updates["provider_response"] = &raw
	}
	if status == enums.PayoutStatusCompleted {
		updates["completed_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ?", ref).
		Updates(updates)
	return res.RowsAffected, res.Error
}
