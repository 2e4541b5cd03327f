package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forgestack/forgestack/app/models"
)

type gormWebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event repository backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &gormWebhookEventRepository{db: db}
}

func (r *gormWebhookEventRepository) CreateIfNotExists(event *models.IncomingWebhookEvent) (bool, *models.IncomingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.IncomingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormWebhookEventRepository) FindByProviderAndEventID(provider, providerEventID string) (*models.IncomingWebhookEvent, error) {
	var event models.IncomingWebhookEvent
	err := r.db.Where("provider = ? AND provider_event_id = ?", provider, providerEventID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormWebhookEventRepository) FindByID(id uint) (*models.IncomingWebhookEvent, error) {
	var event models.IncomingWebhookEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormWebhookEventRepository) MarkAsProcessed(id uint) error {
	now := time.Now()
	return r.db.Model(&models.IncomingWebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     &now,
		"processing_error": "",
	}).Error
}

func (r *gormWebhookEventRepository) SetOrgID(id uint, orgID uint) error {
	return r.db.Model(&models.IncomingWebhookEvent{}).Where("id = ?", id).
		Update("org_id", orgID).Error
}

func (r *gormWebhookEventRepository) MarkAsFailed(id uint, processingError string) error {
	return r.db.Model(&models.IncomingWebhookEvent{}).Where("id = ?", id).
		Update("processing_error", processingError).Error
}

func (r *gormWebhookEventRepository) IncrementRetryCount(id uint) error {
	return r.db.Model(&models.IncomingWebhookEvent{}).Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (r *gormWebhookEventRepository) FindAll(filters WebhookEventFilters) ([]models.IncomingWebhookEvent, error) {
	q := r.db.Model(&models.IncomingWebhookEvent{})
	if filters.Provider != "" {
		q = q.Where("provider = ?", filters.Provider)
	}
	if filters.EventType != "" {
		q = q.Where("event_type = ?", filters.EventType)
	}
	if filters.Verified != nil {
		q = q.Where("verified = ?", *filters.Verified)
	}
	if filters.Processed != nil {
		if *filters.Processed {
			q = q.Where("processed_at IS NOT NULL")
		} else {
			q = q.Where("processed_at IS NULL")
		}
	}
	if filters.Offset > 0 {
		q = q.Offset(filters.Offset)
	}
	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var events []models.IncomingWebhookEvent
	err := q.Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}
