package models

import "time"

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// WebhookDelivery tracks one outbound delivery chain for an endpoint/event
// pair. AttemptNumber increases monotonically; terminal states are
// DeliveredAt set (success) or FailedAt set after attempts are exhausted.
type WebhookDelivery struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	EndpointID     uint       `gorm:"not null;index" json:"endpoint_id"`
	EventType      string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	EventID        string     `gorm:"type:varchar(191);not null;index" json:"event_id"`
	PayloadJSON    string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ResponseStatus int        `gorm:"not null;default:0" json:"response_status"`
	ResponseBody   string     `gorm:"type:text" json:"response_body"`
	AttemptNumber  int        `gorm:"not null;default:0" json:"attempt_number"`
	NextAttemptAt  time.Time  `gorm:"not null;index" json:"next_attempt_at"`
	DeliveredAt    *time.Time `gorm:"type:timestamp;default:null" json:"delivered_at,omitempty"`
	FailedAt       *time.Time `gorm:"type:timestamp;default:null" json:"failed_at,omitempty"`
	Error          string     `gorm:"type:text" json:"error"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
