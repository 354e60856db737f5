package models

import (
	"strings"
	"time"
)

// SubscriptionStatus mirrors Stripe's subscription status vocabulary.
type SubscriptionStatus string

const (
	SubTrialing          SubscriptionStatus = "trialing"
	SubActive            SubscriptionStatus = "active"
	SubPastDue           SubscriptionStatus = "past_due"
	SubCanceled          SubscriptionStatus = "canceled"
	SubUnpaid            SubscriptionStatus = "unpaid"
	SubIncomplete        SubscriptionStatus = "incomplete"
	SubIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// TenantStatus is the uppercased copy denormalized onto the Tenant row.
func (s SubscriptionStatus) TenantStatus() TenantSubscriptionStatus {
	return TenantSubscriptionStatus(strings.ToUpper(string(s)))
}

// TenantSubscription is the one recurring-billing subscription per tenant,
// keyed by Stripe's subscription id.
type TenantSubscription struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	TenantID           uint               `gorm:"not null;uniqueIndex:ux_tenant_subscriptions_tenant" json:"tenant_id"`
	SubscriptionID     string             `gorm:"type:varchar(191);not null;uniqueIndex:ux_tenant_subscriptions_sub_id" json:"subscription_id"`
	CustomerID         string             `gorm:"type:varchar(191);not null;index" json:"customer_id"`
	PriceID            string             `gorm:"type:varchar(191)" json:"price_id"`
	Status             SubscriptionStatus `gorm:"type:varchar(30);not null" json:"status"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	TrialStart         *time.Time         `json:"trial_start,omitempty"`
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CancelAtPeriodEnd  bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`

	Invoices []SubscriptionInvoice `gorm:"foreignKey:SubscriptionDBID" json:"invoices,omitempty"`
}
