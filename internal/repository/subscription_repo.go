package repository

import (
	"context"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	FindBySubscriptionID(ctx context.Context, tx *gorm.DB, subscriptionID string) (*models.TenantSubscription, error)
	Upsert(ctx context.Context, tx *gorm.DB, sub *models.TenantSubscription) error
	Save(ctx context.Context, tx *gorm.DB, sub *models.TenantSubscription) error
	GetDB() *gorm.DB
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *subscriptionRepository) FindBySubscriptionID(ctx context.Context, tx *gorm.DB, subscriptionID string) (*models.TenantSubscription, error) {
	var sub models.TenantSubscription
	err := tx.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert inserts the subscription or, when the tenant already has one
// (duplicate created, or a replacement subscription after cancellation),
// merges the new subscription onto the existing row.
func (r *subscriptionRepository) Upsert(ctx context.Context, tx *gorm.DB, sub *models.TenantSubscription) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_id", "customer_id", "price_id", "status",
			"current_period_start", "current_period_end",
			"trial_start", "trial_end",
			"canceled_at", "cancel_at_period_end", "updated_at",
		}),
	}).Create(sub).Error
}

func (r *subscriptionRepository) Save(ctx context.Context, tx *gorm.DB, sub *models.TenantSubscription) error {
	return tx.WithContext(ctx).Save(sub).Error
}
