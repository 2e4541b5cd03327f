package models

import (
	"encoding/json"
	"strings"
	"time"
)

// WebhookEndpoint is an org-configured outbound destination. URLs must be
// HTTPS. EventsJSON holds the subscribed event types as a JSON string array.
type WebhookEndpoint struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	OrgID               uint      `gorm:"not null;index" json:"org_id"`
	URL                 string    `gorm:"type:varchar(2048);not null" json:"url"`
	Secret              string    `gorm:"type:varchar(191);not null" json:"-"`
	EventsJSON          string    `gorm:"type:text;not null" json:"events_json"`
	Enabled             bool      `gorm:"not null;default:true;index" json:"enabled"`
	ConsecutiveFailures int       `gorm:"not null;default:0" json:"consecutive_failures"`
	DisabledReason      string    `gorm:"type:varchar(191)" json:"disabled_reason,omitempty"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Events decodes the subscribed event types. A broken JSON blob counts as no
// subscriptions rather than all.
func (e *WebhookEndpoint) Events() []string {
	var events []string
	if err := json.Unmarshal([]byte(e.EventsJSON), &events); err != nil {
		return nil
	}
	return events
}

// SetEvents encodes the subscribed event types.
func (e *WebhookEndpoint) SetEvents(events []string) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	e.EventsJSON = string(data)
	return nil
}

// SubscribesTo reports whether the endpoint wants the given event type.
// A literal "*" subscription matches everything.
func (e *WebhookEndpoint) SubscribesTo(eventType string) bool {
	eventType = strings.TrimSpace(eventType)
	for _, ev := range e.Events() {
		if ev == "*" || ev == eventType {
			return true
		}
	}
	return false
}
