package models

import "time"

// IncomingWebhookEvent stores third-party webhook payloads with deduplication
// metadata for idempotent processing. The composite unique index on
// (provider, provider_event_id) is the concurrency guard against racing
// duplicate deliveries; two requests can both miss the lookup, only one
// insert wins.
type IncomingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_incoming_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_incoming_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	Signature       string     `gorm:"type:text" json:"signature"`
	Verified        bool       `gorm:"default:false;index" json:"verified"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	RetryCount      int        `gorm:"not null;default:0" json:"retry_count"`
	OrgID           *uint      `gorm:"index" json:"org_id,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
