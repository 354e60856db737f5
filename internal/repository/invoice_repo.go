package repository

import (
	"context"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, invoice *models.SubscriptionInvoice, columns []string) error
	UpdateByInvoiceID(ctx context.Context, tx *gorm.DB, invoiceID string, fields map[string]any) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Upsert tolerates out-of-order delivery: a payment event may land before
// invoice.created, in which case the row is created on the spot.
func (r *invoiceRepository) Upsert(ctx context.Context, tx *gorm.DB, invoice *models.SubscriptionInvoice, columns []string) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(invoice).Error
}

func (r *invoiceRepository) UpdateByInvoiceID(ctx context.Context, tx *gorm.DB, invoiceID string, fields map[string]any) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.SubscriptionInvoice{}).
		Where("invoice_id = ?", invoiceID).
		Updates(fields)
	return result.RowsAffected, result.Error
}
