package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/karimadly/soukly-backend/pkg/enums"
)

// WebhookLog records every external event exactly once. The unique index on
// (source, event_id) is the idempotency claim: the insert either lands and
// the caller owns the side effects, or collides and the event is a replay.
type WebhookLog struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Source      enums.WebhookSource `gorm:"column:source;type:text;not null;uniqueIndex:ux_webhook_source_event"`
	EventID     string              `gorm:"column:event_id;not null;uniqueIndex:ux_webhook_source_event"`
	EventType   string              `gorm:"column:event_type"`
	EventStatus string              `gorm:"column:event_status"`
	RawPayload  []byte              `gorm:"column:raw_payload;type:jsonb"`
	Processed   bool                `gorm:"column:processed;not null;default:false"`
	ProcessedAt *time.Time          `gorm:"column:processed_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
