package repository

import (
	"context"
	"time"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	MarkPaid(ctx context.Context, tx *gorm.DB, bookingID uint, paymentIntentID string, paidAt time.Time) (int64, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, bookingID uint, paymentIntentID string) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// MarkPaid flips the rows matched by (booking, payment intent) to paid.
// Returns the number of rows touched so the caller can spot a missing
// payment record.
func (r *paymentRepository) MarkPaid(ctx context.Context, tx *gorm.DB, bookingID uint, paymentIntentID string, paidAt time.Time) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ? AND payment_intent_id = ?", bookingID, paymentIntentID).
		Updates(map[string]any{"status": models.PaymentPaid, "paid_at": paidAt})
	return result.RowsAffected, result.Error
}

func (r *paymentRepository) MarkFailed(ctx context.Context, tx *gorm.DB, bookingID uint, paymentIntentID string) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ? AND payment_intent_id = ?", bookingID, paymentIntentID).
		Update("status", models.PaymentFailed)
	return result.RowsAffected, result.Error
}
