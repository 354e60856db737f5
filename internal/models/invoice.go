package models

import "time"

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "DRAFT"
	InvoiceOpen  InvoiceStatus = "OPEN"
	InvoicePaid  InvoiceStatus = "PAID"
)

// SubscriptionInvoice tracks one Stripe invoice attached to a tenant
// subscription, keyed by Stripe's invoice id.
type SubscriptionInvoice struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	TenantID         uint          `gorm:"not null;index" json:"tenant_id"`
	SubscriptionDBID uint          `gorm:"not null;index" json:"subscription_db_id"`
	InvoiceID        string        `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscription_invoices_invoice_id" json:"invoice_id"`
	Status           InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"status"`
	AmountPaid       int64         `gorm:"not null;default:0" json:"amount_paid"` // pence
	AmountDue        int64         `gorm:"not null;default:0" json:"amount_due"`  // pence
	Currency         string        `gorm:"type:varchar(10)" json:"currency"`
	DueDate          *time.Time    `json:"due_date,omitempty"`
	HostedInvoiceURL string        `gorm:"type:text" json:"hosted_invoice_url"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
