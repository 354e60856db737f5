package repository

import (
	"context"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
)

type BookingRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	Confirm(ctx context.Context, tx *gorm.DB, bookingID uint) (bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// Confirm transitions the booking to confirmed unless it already is (or
// was cancelled), and reports whether this call made the transition. The
// guarded update is what keeps the seat counter idempotent even when a
// duplicate delivery slips past the ledger.
func (r *bookingRepository) Confirm(ctx context.Context, tx *gorm.DB, bookingID uint) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status NOT IN ?", bookingID, []models.BookingStatus{models.BookingConfirmed, models.BookingCancelled}).
		Update("status", models.BookingConfirmed)
	return result.RowsAffected == 1, result.Error
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}
