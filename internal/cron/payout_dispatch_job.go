package cron

import (
	"context"
	"fmt"

	"github.com/karimadly/soukly-backend/internal/payouts"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

type payoutDispatcher interface {
	RunOnce(ctx context.Context) (payouts.DispatchStats, error)
}

// PayoutDispatchJobParams configure the payout dispatch job.
type PayoutDispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher payoutDispatcher
}

// NewPayoutDispatchJob builds the job that pushes due vendor payouts
// through the disbursement provider.
func NewPayoutDispatchJob(params PayoutDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("payout dispatcher required")
	}
	return &payoutDispatchJob{
		logg:       params.Logger,
		dispatcher: params.Dispatcher,
	}, nil
}

type payoutDispatchJob struct {
	logg       *logger.Logger
	dispatcher payoutDispatcher
}

func (j *payoutDispatchJob) Name() string { return "payout-dispatch" }

func (j *payoutDispatchJob) Run(ctx context.Context) error {
	stats, err := j.dispatcher.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("payout dispatch: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":       stats.Due,
		"skipped":   stats.Skipped,
		"completed": stats.Completed,
		"retried":   stats.Retried,
		"failed":    stats.Failed,
	})
	j.logg.Info(logCtx, "payout dispatch batch complete")
	return nil
}
