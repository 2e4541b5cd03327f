package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository instances.
type Repositories struct {
	WebhookEvent    WebhookEventRepository
	WebhookEndpoint WebhookEndpointRepository
	WebhookDelivery WebhookDeliveryRepository
	Organization    OrganizationRepository
}

// NewRepositories creates all repositories against one DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WebhookEvent:    NewWebhookEventRepository(db),
		WebhookEndpoint: NewWebhookEndpointRepository(db),
		WebhookDelivery: NewWebhookDeliveryRepository(db),
		Organization:    NewOrganizationRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetWebhookEventRepository returns the webhook event repository instance
func (f *Factory) GetWebhookEventRepository() WebhookEventRepository {
	return f.GetRepositories().WebhookEvent
}

// GetWebhookEndpointRepository returns the webhook endpoint repository instance
func (f *Factory) GetWebhookEndpointRepository() WebhookEndpointRepository {
	return f.GetRepositories().WebhookEndpoint
}

// GetWebhookDeliveryRepository returns the webhook delivery repository instance
func (f *Factory) GetWebhookDeliveryRepository() WebhookDeliveryRepository {
	return f.GetRepositories().WebhookDelivery
}

// GetOrganizationRepository returns the organization repository instance
func (f *Factory) GetOrganizationRepository() OrganizationRepository {
	return f.GetRepositories().Organization
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory. InitializeFactory
// must have been called during startup.
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("repository factory not initialized")
	}
	return globalFactory
}
