package repository

import (
	"context"
	"errors"
	"time"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateEvent is returned when the provider event id has already
// been recorded; the delivery must be a no-op.
var ErrDuplicateEvent = errors.New("webhook event already recorded")

type WebhookEventRepository interface {
	Insert(ctx context.Context, event *models.WebhookEvent) error
	FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, at time.Time) error
	FindUnprocessedBefore(ctx context.Context, cutoff time.Time) ([]models.WebhookEvent, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Insert records the event before any handler runs. A conflict on the
// provider event id means a duplicate delivery.
func (r *webhookEventRepository) Insert(ctx context.Context, event *models.WebhookEvent) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (r *webhookEventRepository) FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed": true, "processed_at": at}).Error
}

// FindUnprocessedBefore lists ledger entries still unprocessed past the
// cutoff — the alerting hook for stuck deliveries.
func (r *webhookEventRepository) FindUnprocessedBefore(ctx context.Context, cutoff time.Time) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("processed = false AND created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
