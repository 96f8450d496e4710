package models

import "time"

// WebhookEvent is the append-only dedup ledger for provider webhooks. A row's
// existence for (stripe_event_id, mode) is the replay signal; rows are written
// once inside the same transaction as the business mutation and never updated.
type WebhookEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StripeEventID string    `gorm:"type:varchar(191);not null;index:ux_webhook_events_event_mode,unique,priority:1" json:"stripe_event_id"`
	Mode          string    `gorm:"type:varchar(8);not null;index:ux_webhook_events_event_mode,unique,priority:2" json:"mode"`
	EventType     string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
