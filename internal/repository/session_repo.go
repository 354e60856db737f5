package repository

import (
	"context"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.CourseSession, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseSession, error)
	IncrementBookedSpots(ctx context.Context, tx *gorm.DB, id uint) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) FindByID(ctx context.Context, id uint) (*models.CourseSession, error) {
	var session models.CourseSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByIDForUpdate acquires a row-level lock on the session within the
// given transaction, serializing concurrent counter updates.
func (r *sessionRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseSession, error) {
	var session models.CourseSession
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) IncrementBookedSpots(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).
		Model(&models.CourseSession{}).
		Where("id = ?", id).
		Update("booked_spots", gorm.Expr("booked_spots + 1")).Error
}
