package models

import "time"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Payment struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	TenantID        uint          `gorm:"not null;index" json:"tenant_id"`
	BookingID       uint          `gorm:"not null;index" json:"booking_id"`
	Amount          int64         `gorm:"not null" json:"amount"` // pence
	Status          PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentIntentID string        `gorm:"type:varchar(191);not null;index" json:"payment_intent_id"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
