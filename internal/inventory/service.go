package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

// Line is one stock movement request against a bucket.
type Line struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	Qty       int
}

// Service applies stock movements inside the caller's transaction.
type Service interface {
	// Reserve decrements every line's bucket. The first short bucket aborts
	// with an out-of-stock error; the caller's transaction rollback undoes
	// any decrements already applied.
	Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error
	// Restore adds quantities back after a cancellation.
	Restore(ctx context.Context, tx *gorm.DB, lines []Line) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService validates dependencies and returns the stock mover.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("inventory repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		affected, err := repo.DecrementStock(ctx, line.ProductID, line.Color, line.Size, line.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": line.ProductID,
					"color":      line.Color,
					"size":       line.Size,
					"requested":  line.Qty,
				})
		}
	}
	return nil
}

func (s *service) Restore(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	for _, line := range lines {
		affected, err := repo.IncrementStock(ctx, line.ProductID, line.Color, line.Size, line.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restoring stock")
		}
		if affected == 0 {
			// The bucket may have been removed since the order was placed.
			// Log and keep restoring the remaining lines.
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"product_id": line.ProductID.String(),
				"color":      line.Color,
				"size":       line.Size,
			})
			s.logg.Warn(logCtx, "stock restore found no bucket")
		}
	}
	return nil
}
