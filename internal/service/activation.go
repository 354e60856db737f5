package service

import "github.com/proteus100/acme-training/internal/models"

// applyBillingStatus is the tenant activation gate. Active is derived
// from the subscription status, never set directly; every writer
// (subscription lifecycle, invoice recovery) goes through this one
// formula so the two tables cannot oscillate.
func applyBillingStatus(t *models.Tenant, status models.SubscriptionStatus) {
	t.SubscriptionStatus = status.TenantStatus()
	t.Active = status == models.SubActive || status == models.SubTrialing
}
