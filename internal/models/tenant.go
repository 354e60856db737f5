package models

import "time"

type TenantSubscriptionStatus string

const (
	TenantSubTrialing          TenantSubscriptionStatus = "TRIALING"
	TenantSubActive            TenantSubscriptionStatus = "ACTIVE"
	TenantSubPastDue           TenantSubscriptionStatus = "PAST_DUE"
	TenantSubCanceled          TenantSubscriptionStatus = "CANCELED"
	TenantSubUnpaid            TenantSubscriptionStatus = "UNPAID"
	TenantSubIncomplete        TenantSubscriptionStatus = "INCOMPLETE"
	TenantSubIncompleteExpired TenantSubscriptionStatus = "INCOMPLETE_EXPIRED"
)

// Tenant carries the activation gate. Active is derived from the billing
// state by the reconciliation handlers; platform staff may override
// SubscriptionStatus out-of-band, which this subsystem never does.
type Tenant struct {
	ID                 uint                     `gorm:"primaryKey" json:"id"`
	Name               string                   `gorm:"type:varchar(191);not null" json:"name"`
	Slug               string                   `gorm:"type:varchar(191);not null;uniqueIndex:ux_tenants_slug" json:"slug"`
	Active             bool                     `gorm:"not null;default:false" json:"active"`
	SubscriptionStatus TenantSubscriptionStatus `gorm:"type:varchar(30)" json:"subscription_status"`
	SubscriptionEndsAt *time.Time               `json:"subscription_ends_at,omitempty"`
	CancelAtPeriodEnd  bool                     `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}
