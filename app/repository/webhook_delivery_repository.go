package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
)

type gormWebhookDeliveryRepository struct {
	db *gorm.DB
}

// NewWebhookDeliveryRepository creates a delivery repository backed by GORM.
func NewWebhookDeliveryRepository(db *gorm.DB) WebhookDeliveryRepository {
	return &gormWebhookDeliveryRepository{db: db}
}

func (r *gormWebhookDeliveryRepository) Create(delivery *models.WebhookDelivery) error {
	if delivery.Status == "" {
		delivery.Status = models.DeliveryStatusPending
	}
	if delivery.NextAttemptAt.IsZero() {
		delivery.NextAttemptAt = time.Now()
	}
	return r.db.Create(delivery).Error
}

func (r *gormWebhookDeliveryRepository) GetByID(id uint) (*models.WebhookDelivery, error) {
	var delivery models.WebhookDelivery
	err := r.db.First(&delivery, id).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *gormWebhookDeliveryRepository) FindDue(now time.Time, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 100
	}
	var deliveries []models.WebhookDelivery
	err := r.db.Where("status = ? AND next_attempt_at <= ?", models.DeliveryStatusPending, now).
		Order("next_attempt_at ASC").Limit(limit).Find(&deliveries).Error
	return deliveries, err
}

func (r *gormWebhookDeliveryRepository) MarkDelivered(id uint, attemptNumber, responseStatus int, responseBody string) error {
	now := time.Now()
	return r.db.Model(&models.WebhookDelivery{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          models.DeliveryStatusDelivered,
		"attempt_number":  attemptNumber,
		"response_status": responseStatus,
		"response_body":   responseBody,
		"delivered_at":    &now,
		"error":           "",
	}).Error
}

func (r *gormWebhookDeliveryRepository) RecordAttempt(id uint, attemptNumber, responseStatus int, responseBody, errMsg string, nextAttemptAt time.Time) error {
	return r.db.Model(&models.WebhookDelivery{}).Where("id = ?", id).Updates(map[string]interface{}{
		"attempt_number":  attemptNumber,
		"response_status": responseStatus,
		"response_body":   responseBody,
		"error":           errMsg,
		"next_attempt_at": nextAttemptAt,
	}).Error
}

func (r *gormWebhookDeliveryRepository) MarkFailed(id uint, attemptNumber, responseStatus int, responseBody, errMsg string) error {
	now := time.Now()
	return r.db.Model(&models.WebhookDelivery{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          models.DeliveryStatusFailed,
		"attempt_number":  attemptNumber,
		"response_status": responseStatus,
		"response_body":   responseBody,
		"failed_at":       &now,
		"error":           errMsg,
	}).Error
}

func (r *gormWebhookDeliveryRepository) ListByEndpoint(endpointID uint, offset, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var deliveries []models.WebhookDelivery
	err := r.db.Where("endpoint_id = ?", endpointID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&deliveries).Error
	return deliveries, err
}
