package models

import "time"

// WebhookEvent is the idempotency ledger: one row per provider event id,
// inserted before any handler runs. Processed stays false until the
// handler returns cleanly, so Stripe's redelivery retries it from scratch.
type WebhookEvent struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EventID     string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_event_id" json:"event_id"`
	Type        string     `gorm:"type:varchar(100);not null;index" json:"type"`
	Payload     string     `gorm:"type:text;not null" json:"payload"`
	Processed   bool       `gorm:"not null;default:false" json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
