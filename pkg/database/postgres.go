package database

import (
	"log"

	"github.com/proteus100/acme-training/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.CourseSession{},
		&models.Booking{},
		&models.Payment{},
		&models.BundleBooking{},
		&models.BundlePayment{},
		&models.TenantSubscription{},
		&models.SubscriptionInvoice{},
		&models.WebhookEvent{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial index: the stale-unprocessed alert query only ever scans
	// unprocessed rows
	db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed
		ON webhook_events (created_at)
		WHERE processed = false
	`)

	return db
}
