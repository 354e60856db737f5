package repository

import (
	"context"
	"time"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
)

type BundleBookingRepository interface {
	FindByIDWithSessions(ctx context.Context, tx *gorm.DB, id uint) (*models.BundleBooking, error)
	Confirm(ctx context.Context, tx *gorm.DB, bundleBookingID uint) (bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, bundleBookingID uint, status models.BookingStatus) error
	MarkPaymentsPaid(ctx context.Context, tx *gorm.DB, bundleBookingID uint, paymentIntentID string, paidAt time.Time) (int64, error)
	MarkPaymentsFailed(ctx context.Context, tx *gorm.DB, bundleBookingID uint, paymentIntentID string) (int64, error)
}

type bundleBookingRepository struct {
	db *gorm.DB
}

func NewBundleBookingRepository(db *gorm.DB) BundleBookingRepository {
	return &bundleBookingRepository{db: db}
}

func (r *bundleBookingRepository) FindByIDWithSessions(ctx context.Context, tx *gorm.DB, id uint) (*models.BundleBooking, error) {
	var bundle models.BundleBooking
	err := tx.WithContext(ctx).
		Preload("Sessions").
		First(&bundle, id).Error
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Confirm mirrors BookingRepository.Confirm for bundles: the transition
// happens at most once, guarding the per-session counter fan-out.
func (r *bundleBookingRepository) Confirm(ctx context.Context, tx *gorm.DB, bundleBookingID uint) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&models.BundleBooking{}).
		Where("id = ? AND status NOT IN ?", bundleBookingID, []models.BookingStatus{models.BookingConfirmed, models.BookingCancelled}).
		Update("status", models.BookingConfirmed)
	return result.RowsAffected == 1, result.Error
}

func (r *bundleBookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bundleBookingID uint, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.BundleBooking{}).
		Where("id = ?", bundleBookingID).
		Update("status", status).Error
}

func (r *bundleBookingRepository) MarkPaymentsPaid(ctx context.Context, tx *gorm.DB, bundleBookingID uint, paymentIntentID string, paidAt time.Time) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.BundlePayment{}).
		Where("bundle_booking_id = ? AND payment_intent_id = ?", bundleBookingID, paymentIntentID).
		Updates(map[string]any{"status": models.PaymentPaid, "paid_at": paidAt})
	return result.RowsAffected, result.Error
}

func (r *bundleBookingRepository) MarkPaymentsFailed(ctx context.Context, tx *gorm.DB, bundleBookingID uint, paymentIntentID string) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.BundlePayment{}).
		Where("bundle_booking_id = ? AND payment_intent_id = ?", bundleBookingID, paymentIntentID).
		Update("status", models.PaymentFailed)
	return result.RowsAffected, result.Error
}
