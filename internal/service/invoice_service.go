package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/proteus100/acme-training/internal/dto"
	"github.com/proteus100/acme-training/internal/models"
	"github.com/proteus100/acme-training/internal/repository"
	"gorm.io/gorm"
)

// InvoiceReconciler tracks the lifecycle of billing invoices attached to
// a tenant subscription.
type InvoiceReconciler interface {
	HandleCreated(ctx context.Context, p *dto.InvoicePayload) error
	HandleFinalized(ctx context.Context, p *dto.InvoicePayload) error
	HandlePaymentSucceeded(ctx context.Context, p *dto.InvoicePayload) error
	HandlePaymentFailed(ctx context.Context, p *dto.InvoicePayload) error
}

type invoiceReconciler struct {
	invoices repository.InvoiceRepository
	subs     repository.SubscriptionRepository
	tenants  repository.TenantRepository
}

func NewInvoiceReconciler(invoices repository.InvoiceRepository, subs repository.SubscriptionRepository, tenants repository.TenantRepository) InvoiceReconciler {
	return &invoiceReconciler{invoices: invoices, subs: subs, tenants: tenants}
}

func (s *invoiceReconciler) HandleCreated(ctx context.Context, p *dto.InvoicePayload) error {
	err := s.subs.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subs.FindBySubscriptionID(ctx, tx, p.Subscription)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// an invoice cannot be reconciled without its subscription
			log.Printf("[InvoiceReconciler] invoice %s references unknown subscription %s, skipping", p.ID, p.Subscription)
			return nil
		}
		if err != nil {
			return err
		}

		return s.invoices.Upsert(ctx, tx, &models.SubscriptionInvoice{
			TenantID:         sub.TenantID,
			SubscriptionDBID: sub.ID,
			InvoiceID:        p.ID,
			Status:           invoiceStatus(p.Status),
			AmountPaid:       p.AmountPaid,
			AmountDue:        p.AmountDue,
			Currency:         p.Currency,
			DueDate:          dto.UnixTime(p.DueDate),
		}, []string{"amount_due", "amount_paid", "currency", "due_date", "updated_at"})
	})
	if err != nil {
		return fmt.Errorf("invoice created %s: %w", p.ID, err)
	}
	return nil
}

// HandleFinalized is update-only: the row should already exist from
// invoice.created; if it does not, that is logged and left alone.
func (s *invoiceReconciler) HandleFinalized(ctx context.Context, p *dto.InvoicePayload) error {
	rows, err := s.invoices.UpdateByInvoiceID(ctx, s.subs.GetDB(), p.ID, map[string]any{
		"status":             models.InvoiceOpen,
		"hosted_invoice_url": p.HostedInvoiceURL,
		"amount_due":         p.AmountDue,
	})
	if err != nil {
		return fmt.Errorf("invoice finalized %s: %w", p.ID, err)
	}
	if rows == 0 {
		log.Printf("[InvoiceReconciler] finalized invoice %s has no local record", p.ID)
	}
	return nil
}

// HandlePaymentSucceeded upserts the invoice to PAID and reactivates the
// tenant — the only recovery path for a past-due tenant short of a brand
// new subscription.
func (s *invoiceReconciler) HandlePaymentSucceeded(ctx context.Context, p *dto.InvoicePayload) error {
	err := s.subs.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subs.FindBySubscriptionID(ctx, tx, p.Subscription)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[InvoiceReconciler] paid invoice %s references unknown subscription %s, skipping", p.ID, p.Subscription)
			return nil
		}
		if err != nil {
			return err
		}

		paidAt := dto.UnixTime(p.StatusTransitions.PaidAt)
		if paidAt == nil {
			now := time.Now().UTC()
			paidAt = &now
		}

		invoice := &models.SubscriptionInvoice{
			TenantID:         sub.TenantID,
			SubscriptionDBID: sub.ID,
			InvoiceID:        p.ID,
			Status:           models.InvoicePaid,
			AmountPaid:       p.AmountPaid,
			AmountDue:        p.AmountDue,
			Currency:         p.Currency,
			PaidAt:           paidAt,
		}
		if err := s.invoices.Upsert(ctx, tx, invoice, []string{
			"status", "amount_paid", "amount_due", "paid_at", "updated_at",
		}); err != nil {
			return err
		}

		if sub.Status == models.SubCanceled {
			// deletion is final: a trailing paid invoice must not
			// resurrect the tenant, only subscription-created can
			log.Printf("[InvoiceReconciler] invoice %s paid on canceled subscription %s, activation left alone", p.ID, p.Subscription)
			return nil
		}

		tenant, err := s.tenants.FindByID(ctx, tx, sub.TenantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[InvoiceReconciler] tenant %d not found, activation not recomputed", sub.TenantID)
			return nil
		}
		if err != nil {
			return err
		}
		applyBillingStatus(tenant, models.SubActive)
		return s.tenants.Save(ctx, tx, tenant)
	})
	if err != nil {
		return fmt.Errorf("invoice payment succeeded %s: %w", p.ID, err)
	}
	return nil
}

// HandlePaymentFailed marks the tenant past-due but leaves the activation
// gate untouched: one failed invoice starts the grace period, only a
// subscription-deleted event deactivates.
func (s *invoiceReconciler) HandlePaymentFailed(ctx context.Context, p *dto.InvoicePayload) error {
	err := s.subs.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subs.FindBySubscriptionID(ctx, tx, p.Subscription)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[InvoiceReconciler] failed invoice %s references unknown subscription %s, skipping", p.ID, p.Subscription)
			return nil
		}
		if err != nil {
			return err
		}

		invoice := &models.SubscriptionInvoice{
			TenantID:         sub.TenantID,
			SubscriptionDBID: sub.ID,
			InvoiceID:        p.ID,
			Status:           models.InvoiceOpen,
			AmountDue:        p.AmountDue,
			Currency:         p.Currency,
			DueDate:          dto.UnixTime(p.DueDate),
		}
		if err := s.invoices.Upsert(ctx, tx, invoice, []string{
			"status", "amount_due", "updated_at",
		}); err != nil {
			return err
		}

		tenant, err := s.tenants.FindByID(ctx, tx, sub.TenantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[InvoiceReconciler] tenant %d not found, past-due not recorded", sub.TenantID)
			return nil
		}
		if err != nil {
			return err
		}
		tenant.SubscriptionStatus = models.TenantSubPastDue
		return s.tenants.Save(ctx, tx, tenant)
	})
	if err != nil {
		return fmt.Errorf("invoice payment failed %s: %w", p.ID, err)
	}
	return nil
}

func invoiceStatus(raw string) models.InvoiceStatus {
	if raw == "" {
		return models.InvoiceDraft
	}
	return models.InvoiceStatus(strings.ToUpper(raw))
}
