package webhooks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/karimadly/soukly-backend/pkg/db"
	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
)

// ClaimStore deduplicates external events. Claim is a single atomic
// unique-constraint insert: whoever lands the row owns the side effects,
// every other caller sees a replay. No check-then-act window.
type ClaimStore interface {
	WithTx(tx *gorm.DB) ClaimStore
	// Claim inserts the event row. Returns false when the event was already
	// claimed by an earlier delivery.
	Claim(ctx context.Context, event Event) (bool, error)
	// MarkProcessed flips the claimed row once side effects committed.
	// Claims ride the caller's transaction, so a failed handler rolls the
	// claim back and the provider's retry gets another run.
	MarkProcessed(ctx context.Context, source enums.WebhookSource, eventID string) error
	// DeleteProcessedBefore prunes old processed rows (retention job).
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Event is one external delivery to record.
type Event struct {
	Source      enums.WebhookSource
	EventID     string
	EventType   string
	EventStatus string
	RawPayload  []byte
}

type claimStore struct {
	db *gorm.DB
}

// NewClaimStore builds the webhook claim store bound to the provided DB.
func NewClaimStore(db *gorm.DB) ClaimStore {
	return &claimStore{db: db}
}

func (s *claimStore) WithTx(tx *gorm.DB) ClaimStore {
	if tx == nil {
		return s
	}
	return &claimStore{db: tx}
}

func (s *claimStore) Claim(ctx context.Context, event Event) (bool, error) {
	if event.EventID == "" {
		return false, errors.New("event id is required")
	}
	row := models.WebhookLog{
		Source:      event.Source,
		EventID:     event.EventID,
		EventType:   event.EventType,
		EventStatus: event.EventStatus,
		RawPayload:  event.RawPayload,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_webhook_source_event") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *claimStore) MarkProcessed(ctx context.Context, source enums.WebhookSource, eventID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("source = ? AND event_id = ?", source, eventID).
		Updates(map[string]any{
			"processed":    true,
			"processed_at": &now,
		}).Error
}

func (s *claimStore) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("processed = ? AND created_at < ?", true, cutoff).
		Delete(&models.WebhookLog{})
	return res.RowsAffected, res.Error
}
