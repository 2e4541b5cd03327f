package repository

import (
	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
)

type gormWebhookEndpointRepository struct {
	db *gorm.DB
}

// NewWebhookEndpointRepository creates an endpoint repository backed by GORM.
func NewWebhookEndpointRepository(db *gorm.DB) WebhookEndpointRepository {
	return &gormWebhookEndpointRepository{db: db}
}

func (r *gormWebhookEndpointRepository) Create(endpoint *models.WebhookEndpoint) error {
	return r.db.Create(endpoint).Error
}

func (r *gormWebhookEndpointRepository) GetByID(id uint) (*models.WebhookEndpoint, error) {
	var endpoint models.WebhookEndpoint
	err := r.db.First(&endpoint, id).Error
	if err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func (r *gormWebhookEndpointRepository) ListByOrg(orgID uint) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.Where("org_id = ?", orgID).Order("id ASC").Find(&endpoints).Error
	return endpoints, err
}

func (r *gormWebhookEndpointRepository) ListEnabledForEvent(orgID uint, eventType string) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.Where("org_id = ? AND enabled = ?", orgID, true).Find(&endpoints).Error
	if err != nil {
		return nil, err
	}
	// Event-type subscription lives in a JSON column; filter in memory.
	matched := endpoints[:0]
	for i := range endpoints {
		if endpoints[i].SubscribesTo(eventType) {
			matched = append(matched, endpoints[i])
		}
	}
	return matched, nil
}

func (r *gormWebhookEndpointRepository) Update(endpoint *models.WebhookEndpoint) error {
	return r.db.Save(endpoint).Error
}

func (r *gormWebhookEndpointRepository) Delete(id uint) error {
	return r.db.Delete(&models.WebhookEndpoint{}, id).Error
}

func (r *gormWebhookEndpointRepository) RecordFailure(id uint) (int, error) {
	if err := r.db.Model(&models.WebhookEndpoint{}).Where("id = ?", id).
		UpdateColumn("consecutive_failures", gorm.Expr("consecutive_failures + 1")).Error; err != nil {
		return 0, err
	}
	var endpoint models.WebhookEndpoint
	if err := r.db.Select("consecutive_failures").First(&endpoint, id).Error; err != nil {
		return 0, err
	}
	return endpoint.ConsecutiveFailures, nil
}

func (r *gormWebhookEndpointRepository) ResetFailures(id uint) error {
	return r.db.Model(&models.WebhookEndpoint{}).Where("id = ?", id).
		Update("consecutive_failures", 0).Error
}

func (r *gormWebhookEndpointRepository) Disable(id uint, reason string) error {
	return r.db.Model(&models.WebhookEndpoint{}).Where("id = ?", id).Updates(map[string]interface{}{
		"enabled":         false,
		"disabled_reason": reason,
	}).Error
}
