package repository

import (
	"time"

	"github.com/forgestack/forgestack/app/models"
)

// WebhookEventFilters narrows FindAll queries for admin/event listing.
type WebhookEventFilters struct {
	Provider  string
	EventType string
	Verified  *bool
	Processed *bool
	Offset    int
	Limit     int
}

// WebhookEventRepository defines database operations for incoming webhook
// events. CreateIfNotExists must rely on the storage-layer unique index on
// (provider, provider_event_id), never on a prior lookup alone.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.IncomingWebhookEvent) (created bool, stored *models.IncomingWebhookEvent, err error)
	FindByProviderAndEventID(provider, providerEventID string) (*models.IncomingWebhookEvent, error)
	FindByID(id uint) (*models.IncomingWebhookEvent, error)
	MarkAsProcessed(id uint) error
	SetOrgID(id uint, orgID uint) error
	MarkAsFailed(id uint, processingError string) error
	IncrementRetryCount(id uint) error
	FindAll(filters WebhookEventFilters) ([]models.IncomingWebhookEvent, error)
}

// WebhookEndpointRepository defines database operations for outbound webhook
// endpoints.
type WebhookEndpointRepository interface {
	Create(endpoint *models.WebhookEndpoint) error
	GetByID(id uint) (*models.WebhookEndpoint, error)
	ListByOrg(orgID uint) ([]models.WebhookEndpoint, error)
	ListEnabledForEvent(orgID uint, eventType string) ([]models.WebhookEndpoint, error)
	Update(endpoint *models.WebhookEndpoint) error
	Delete(id uint) error
	RecordFailure(id uint) (consecutiveFailures int, err error)
	ResetFailures(id uint) error
	Disable(id uint, reason string) error
}

// WebhookDeliveryRepository defines database operations for outbound delivery
// attempts.
type WebhookDeliveryRepository interface {
	Create(delivery *models.WebhookDelivery) error
	GetByID(id uint) (*models.WebhookDelivery, error)
	FindDue(now time.Time, limit int) ([]models.WebhookDelivery, error)
	MarkDelivered(id uint, attemptNumber, responseStatus int, responseBody string) error
	RecordAttempt(id uint, attemptNumber, responseStatus int, responseBody, errMsg string, nextAttemptAt time.Time) error
	MarkFailed(id uint, attemptNumber, responseStatus int, responseBody, errMsg string) error
	ListByEndpoint(endpointID uint, offset, limit int) ([]models.WebhookDelivery, error)
}

// OrganizationRepository defines database operations for tenant lookup.
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id uint) (*models.Organization, error)
	GetBySlug(slug string) (*models.Organization, error)
	GetByAPIKeyHash(hash string) (*models.Organization, error)
	TouchAPIKeyUsage(id uint, at time.Time) error
	Update(org *models.Organization) error
}
