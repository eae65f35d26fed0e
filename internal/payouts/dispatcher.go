package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/metrics"
	"github.com/karimadly/soukly-backend/pkg/outbox"
	"github.com/karimadly/soukly-backend/pkg/outbox/payloads"
	"github.com/karimadly/soukly-backend/pkg/paymob"
	"github.com/karimadly/soukly-backend/pkg/types"
)

// Provider is the slice of the disbursement gateway the dispatcher needs.
type Provider interface {
	Token(ctx context.Context) (string, error)
	Disburse(ctx context.Context, token string, params paymob.DisburseParams) (*paymob.DisburseResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Dispatcher pushes due payouts to the disbursement provider.
type Dispatcher interface {
	// RunOnce processes one batch of due payouts and returns per-batch stats.
	RunOnce(ctx context.Context) (DispatchStats, error)
}

// DispatchStats summarizes one dispatcher run.
type DispatchStats struct {
	Due       int
	Skipped   int
	Completed int
	Retried   int
	Failed    int
}

// DispatcherParams wires the dispatcher dependencies.
type DispatcherParams struct {
	Repo         Repository
	Provider     Provider
	Tx           txRunner
	Outbox       *outbox.Service
	Logger       *logger.Logger
	Metrics      *metrics.PayoutMetrics
	RetryBackoff time.Duration
	MaxAttempts  int
	BatchSize    int
}

type dispatcher struct {
	repo         Repository
	provider     Provider
	tx           txRunner
	events       *outbox.Service
	logg         *logger.Logger
	stats        *metrics.PayoutMetrics
	retryBackoff time.Duration
	maxAttempts  int
	batchSize    int
}

// NewDispatcher validates dependencies and returns the payout dispatcher.
func NewDispatcher(params DispatcherParams) (Dispatcher, error) {
	if params.Repo == nil {
		return nil, errors.New("payout repository is required")
	}
	if params.Provider == nil {
		return nil, errors.New("payout provider is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.RetryBackoff <= 0 {
		params.RetryBackoff = 60 * time.Minute
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = 10
	}
	if params.BatchSize <= 0 {
		params.BatchSize = 25
	}
	return &dispatcher{
		repo:         params.Repo,
		provider:     params.Provider,
		tx:           params.Tx,
		events:       params.Outbox,
		logg:         params.Logger,
		stats:        params.Metrics,
		retryBackoff: params.RetryBackoff,
		maxAttempts:  params.MaxAttempts,
		batchSize:    params.BatchSize,
	}, nil
}

func (d *dispatcher) RunOnce(ctx context.Context) (DispatchStats, error) {
	var stats DispatchStats

	due, err := d.repo.FindDue(ctx, time.Now(), d.batchSize)
	if err != nil {
		return stats, fmt.Errorf("loading due payouts: %w", err)
	}
	stats.Due = len(due)
	if len(due) == 0 {
		return stats, nil
	}

	// One token per batch. If auth itself fails nothing has been claimed yet,
	// so the whole batch stays pending for the next run without burning
	// attempt budget.
	token, err := d.provider.Token(ctx)
	if err != nil {
		return stats, fmt.Errorf("authenticating with payout provider: %w", err)
	}

	for _, payout := range due {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"payout_id": payout.ID.String(),
			"vendor_id": payout.VendorID.String(),
			"order_id":  payout.OrderID.String(),
		})

		claimed, err := d.repo.ClaimProcessing(ctx, payout.ID)
		if err != nil {
			d.logg.Error(logCtx, "claiming payout for processing", err)
			continue
		}
		if !claimed {
			// another worker or a cancellation won the race
			stats.Skipped++
			d.stats.IncDispatched("skipped")
			continue
		}

		d.dispatchOne(logCtx, payout, token, &stats)
	}
	return stats, nil
}

func (d *dispatcher) dispatchOne(ctx context.Context, payout models.VendorPayout, token string, stats *DispatchStats) {
	if !payout.Net.IsPositive() {
		d.failTerminal(ctx, payout, "non-positive net amount", stats)
		return
	}
	if payout.BankAccount == "" || payout.BankHolder == "" {
		d.failTerminal(ctx, payout, "missing bank details snapshot", stats)
		return
	}

	resp, err := d.provider.Disburse(ctx, token, paymob.DisburseParams{
		MerchantReference: payout.MerchantReference(),
		Amount:            payout.Net,
		BankAccount:       payout.BankAccount,
		BankRouting:       payout.BankRouting,
		HolderName:        payout.BankHolder,
		BankName:          payout.BankName,
	})
	if err != nil {
		d.handleFailure(ctx, payout, err.Error(), stats)
		return
	}
	if disburseRejected(resp.Status) {
		reason := resp.Description
		if reason == "" {
			reason = fmt.Sprintf("provider returned status %q", resp.Status)
		}
		d.handleFailure(ctx, payout, reason, stats)
		return
	}

	raw := types.JSONMap{
		"transaction_id": resp.TransactionID,
		"status":         resp.Status,
		"status_code":    resp.StatusCode,
		"description":    resp.Description,
	}
	err = d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := d.repo.WithTx(tx).MarkCompleted(ctx, payout.ID, resp.TransactionID, raw); err != nil {
			return err
		}
		return d.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data: payloads.PayoutCompletedEvent{
				PayoutID:    payout.ID,
				VendorID:    payout.VendorID,
				OrderID:     payout.OrderID,
				Net:         payout.Net,
				CompletedAt: time.Now(),
			},
		})
	})
	if err != nil {
		d.logg.Error(ctx, "recording completed payout", err)
		return
	}
	stats.Completed++
	d.stats.IncDispatched("completed")
	d.stats.IncCompleted()
	d.logg.Info(ctx, "vendor payout completed")
}

// handleFailure reschedules the payout, or parks it terminally failed once
// the attempt budget is spent.
func (d *dispatcher) handleFailure(ctx context.Context, payout models.VendorPayout, reason string, stats *DispatchStats) {
	attempts := payout.AttemptCount + 1
	if attempts >= d.maxAttempts {
		d.failTerminal(ctx, payout, reason, stats)
		return
	}

	next := time.Now().Add(d.retryBackoff)
	if err := d.repo.MarkRetry(ctx, payout.ID, reason, next); err != nil {
		d.logg.Error(ctx, "rescheduling failed payout", err)
		return
	}
	stats.Retried++
	d.stats.IncDispatched("retried")
	d.stats.IncRetried()
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"attempt":     attempts,
		"next_try_at": next.Format(time.RFC3339),
	})
	d.logg.Warn(logCtx, "vendor payout dispatch failed, rescheduled: "+reason)
}

func (d *dispatcher) failTerminal(ctx context.Context, payout models.VendorPayout, reason string, stats *DispatchStats) {
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := d.repo.WithTx(tx).MarkFailed(ctx, payout.ID, reason); err != nil {
			return err
		}
		return d.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutFailed,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data: payloads.PayoutFailedEvent{
				PayoutID: payout.ID,
				VendorID: payout.VendorID,
				OrderID:  payout.OrderID,
				Attempts: payout.AttemptCount + 1,
				LastErr:  reason,
			},
		})
	})
	if err != nil {
		d.logg.Error(ctx, "recording terminally failed payout", err)
		return
	}
	stats.Failed++
	d.stats.IncDispatched("failed")
	d.stats.IncFailed()
	d.logg.Error(ctx, "vendor payout terminally failed", errors.New(reason))
}

func disburseRejected(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "declined", "rejected":
		return true
	}
	return false
}
