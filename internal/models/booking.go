package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type Booking struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	TenantID        uint          `gorm:"not null;index" json:"tenant_id"`
	CustomerID      uint          `gorm:"not null;index" json:"customer_id"`
	CourseSessionID uint          `gorm:"not null;index" json:"course_session_id"`
	TotalAmount     int64         `gorm:"not null" json:"total_amount"` // pence
	Status          BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	Session  *CourseSession `gorm:"foreignKey:CourseSessionID" json:"session,omitempty"`
	Payments []Payment      `gorm:"foreignKey:BookingID" json:"payments,omitempty"`
}

// PaidInFull reports whether the PAID payments cover the booking total.
// Display/consistency check only; confirmation is driven by the
// payment-succeeded event itself.
func (b *Booking) PaidInFull() bool {
	var paid int64
	for _, p := range b.Payments {
		if p.Status == PaymentPaid {
			paid += p.Amount
		}
	}
	return paid >= b.TotalAmount
}
