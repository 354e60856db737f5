package models

import "time"

// BundleBooking is a single purchase spanning several course sessions,
// reconciled as a unit: every referenced session's counter moves together.
type BundleBooking struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	TenantID    uint          `gorm:"not null;index" json:"tenant_id"`
	CustomerID  uint          `gorm:"not null;index" json:"customer_id"`
	TotalAmount int64         `gorm:"not null" json:"total_amount"` // pence
	Status      BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Sessions []CourseSession `gorm:"many2many:bundle_booking_sessions" json:"sessions,omitempty"`
	Payments []BundlePayment `gorm:"foreignKey:BundleBookingID" json:"payments,omitempty"`
}

type BundlePayment struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	TenantID        uint          `gorm:"not null;index" json:"tenant_id"`
	BundleBookingID uint          `gorm:"not null;index" json:"bundle_booking_id"`
	Amount          int64         `gorm:"not null" json:"amount"` // pence
	Status          PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentIntentID string        `gorm:"type:varchar(191);not null;index" json:"payment_intent_id"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
