package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/karimadly/soukly-backend/internal/refunds"
	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 24 * time.Hour
	expiryBatchSize        = 100
	expiredOrderReason     = "payment window expired"
)

type staleOrderReader interface {
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, input refunds.CancelInput) (*refunds.CancelResult, error)
}

// OrderExpiryJobParams configure the stale order sweep.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders staleOrderReader
	Cancel orderCanceller
	TTL    time.Duration
}

// NewOrderExpiryJob builds the job that cancels gateway orders whose
// payment never arrived within the pending window. Cancellation goes
// through the refund resolver so stock restore and payout clawback
// follow the same path as a customer cancel.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Cancel == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		cancel: params.Cancel,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders staleOrderReader
	cancel orderCanceller
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.FindStalePending(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range stale {
		_, err := j.cancel.Cancel(ctx, refunds.CancelInput{
			OrderID: order.ID,
			Reason:  expiredOrderReason,
		})
		if err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "failed to expire stale order", err)
			errs = multierr.Append(errs, err)
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"stale":   len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "stale order sweep complete")
	return errs
}
