package models

import "time"

// Organization plans. Unknown values fall back to PlanFree when resolving
// rate-limit quotas.
const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

const (
	OrgStatusActive    = "active"
	OrgStatusSuspended = "suspended"
)

// Organization is the tenant root. Every API key, webhook endpoint and
// delivery belongs to exactly one organization.
type Organization struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(191);not null" json:"name"`
	Slug             string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"slug"`
	Plan             string     `gorm:"type:varchar(20);not null;default:'free';index" json:"plan"`
	Status           string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	APIKeyHash       string     `gorm:"type:varchar(64);index" json:"-"`
	APIKeyLastUsedAt *time.Time `gorm:"type:timestamp;default:null" json:"api_key_last_used_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
