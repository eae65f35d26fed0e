package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/karimadly/soukly-backend/pkg/logger"
)

const defaultWebhookRetention = 30 * 24 * time.Hour

type processedWebhookPruner interface {
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WebhookRetentionJobParams configure the webhook log cleanup job.
type WebhookRetentionJobParams struct {
	Logger    *logger.Logger
	Claims    processedWebhookPruner
	Retention time.Duration
}

// NewWebhookRetentionJob builds the job that prunes processed webhook
// log rows past the retention window. Unprocessed rows are kept so a
// replayed delivery still deduplicates.
func NewWebhookRetentionJob(params WebhookRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Claims == nil {
		return nil, fmt.Errorf("webhook claim store required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultWebhookRetention
	}
	return &webhookRetentionJob{
		logg:      params.Logger,
		claims:    params.Claims,
		retention: retention,
		now:       time.Now,
	}, nil
}

type webhookRetentionJob struct {
	logg      *logger.Logger
	claims    processedWebhookPruner
	retention time.Duration
	now       func() time.Time
}

func (j *webhookRetentionJob) Name() string { return "webhook-retention" }

func (j *webhookRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.claims.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("webhook retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "webhook log retention cleanup complete")
	return nil
}
