package payouts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/internal/webhooks"
	"github.com/karimadly/soukly-backend/pkg/enums"
	apperrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/types"
)

// WebhookEvent is one disbursement-status delivery from the payout provider.
type WebhookEvent struct {
	EventID           string
	MerchantReference string
	ProviderTxnID     string
	Status            string
	StatusDescription string
	RawPayload        []byte
}

// Reconciler applies provider webhook deliveries to payout rows.
type Reconciler interface {
	// ProcessWebhookEvent claims the delivery and reconciles the payout it
	// references. Replays and unknown references succeed without effect.
	ProcessWebhookEvent(ctx context.Context, event WebhookEvent) error
}

// ReconcilerParams wires the reconciler dependencies.
type ReconcilerParams struct {
	Repo   Repository
	Claims webhooks.ClaimStore
	Tx     txRunner
	Logger *logger.Logger
}

type reconciler struct {
	repo   Repository
	claims webhooks.ClaimStore
	tx     txRunner
	logg   *logger.Logger
}

// NewReconciler validates dependencies and returns the webhook reconciler.
func NewReconciler(params ReconcilerParams) (Reconciler, error) {
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "payout repository is required")
	}
	if params.Claims == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "webhook claim store is required")
	}
	if params.Tx == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "transaction runner is required")
	}
	if params.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "logger is required")
	}
	return &reconciler{
		repo:   params.Repo,
		claims: params.Claims,
		tx:     params.Tx,
		logg:   params.Logger,
	}, nil
}

func (r *reconciler) ProcessWebhookEvent(ctx context.Context, event WebhookEvent) error {
	if event.EventID == "" {
		return apperrors.New(apperrors.CodeValidation, "webhook event id is required")
	}
	ref, err := uuid.Parse(event.MerchantReference)
	if err != nil {
		return apperrors.New(apperrors.CodeValidation, "merchant reference is not a payout id")
	}

	logCtx := r.logg.WithFields(ctx, map[string]any{
		"payout_id": ref.String(),
		"event_id":  event.EventID,
	})

	return r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claims := r.claims.WithTx(tx)
		claimed, err := claims.Claim(ctx, webhooks.Event{
			Source:      enums.WebhookSourcePayouts,
			EventID:     event.EventID,
			EventType:   "DISBURSEMENT",
			EventStatus: event.Status,
			RawPayload:  event.RawPayload,
		})
		if err != nil {
			return err
		}
		if !claimed {
			r.logg.Info(logCtx, "payout webhook replay ignored")
			return nil
		}

		status, known := payoutStatusFromProvider(event.Status)
		if !known {
			r.logg.Warn(logCtx, "payout webhook carried unknown status "+event.Status)
			return claims.MarkProcessed(ctx, enums.WebhookSourcePayouts, event.EventID)
		}

		raw := types.JSONMap{
			"transaction_id":     event.ProviderTxnID,
			"status":             event.Status,
			"status_description": event.StatusDescription,
		}
		rows, err := r.repo.WithTx(tx).UpdateByMerchantReference(ctx, ref, status, event.ProviderTxnID, raw)
		if err != nil {
			return err
		}
		if rows == 0 {
			r.logg.Warn(logCtx, "payout webhook referenced no known payout")
		} else {
			r.logg.Info(r.logg.WithField(logCtx, "status", status.String()), "payout reconciled from webhook")
		}
		return claims.MarkProcessed(ctx, enums.WebhookSourcePayouts, event.EventID)
	})
}

func payoutStatusFromProvider(status string) (enums.PayoutStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "successful", "success", "processed":
		return enums.PayoutStatusCompleted, true
	case "failed", "declined", "rejected":
		return enums.PayoutStatusFailed, true
	case "pending", "processing":
		return enums.PayoutStatusProcessing, true
	}
	return "", false
}
