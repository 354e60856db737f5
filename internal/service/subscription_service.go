package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/proteus100/acme-training/internal/dto"
	"github.com/proteus100/acme-training/internal/models"
	"github.com/proteus100/acme-training/internal/repository"
	"gorm.io/gorm"
)

// SubscriptionLifecycle maintains the tenant's recurring-billing
// subscription state machine from Stripe subscription events.
type SubscriptionLifecycle interface {
	HandleCreated(ctx context.Context, p *dto.SubscriptionPayload) error
	HandleUpdated(ctx context.Context, p *dto.SubscriptionPayload) error
	HandleDeleted(ctx context.Context, p *dto.SubscriptionPayload) error
}

type subscriptionLifecycle struct {
	subs    repository.SubscriptionRepository
	tenants repository.TenantRepository
}

func NewSubscriptionLifecycle(subs repository.SubscriptionRepository, tenants repository.TenantRepository) SubscriptionLifecycle {
	return &subscriptionLifecycle{subs: subs, tenants: tenants}
}

// HandleCreated upserts by tenant: a duplicate created, or a replacement
// subscription opened after cancellation, merges instead of erroring.
func (s *subscriptionLifecycle) HandleCreated(ctx context.Context, p *dto.SubscriptionPayload) error {
	tenantID, ok := p.TenantID()
	if !ok {
		// without tenant attribution there is nothing to attach this to
		log.Printf("[SubscriptionLifecycle] created %s has no tenantId metadata, skipping", p.ID)
		return nil
	}

	status := models.SubscriptionStatus(p.Status)

	err := s.subs.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := &models.TenantSubscription{
			TenantID:           tenantID,
			SubscriptionID:     p.ID,
			CustomerID:         p.Customer,
			PriceID:            p.PriceID(),
			Status:             status,
			CurrentPeriodStart: dto.UnixTime(p.CurrentPeriodStart),
			CurrentPeriodEnd:   dto.UnixTime(p.CurrentPeriodEnd),
			TrialStart:         dto.UnixTime(p.TrialStart),
			TrialEnd:           dto.UnixTime(p.TrialEnd),
			CanceledAt:         dto.UnixTime(p.CanceledAt),
			CancelAtPeriodEnd:  p.CancelAtPeriodEnd,
		}
		if err := s.subs.Upsert(ctx, tx, sub); err != nil {
			return err
		}
		return s.syncTenant(ctx, tx, tenantID, status, sub.CurrentPeriodEnd, p.CancelAtPeriodEnd)
	})
	if err != nil {
		return fmt.Errorf("subscription created %s: %w", p.ID, err)
	}
	return nil
}

// HandleUpdated is a full field overwrite plus the correctness-critical
// dual write: the tenant's activation gate is recomputed on every update.
func (s *subscriptionLifecycle) HandleUpdated(ctx context.Context, p *dto.SubscriptionPayload) error {
	status := models.SubscriptionStatus(p.Status)

	err := s.subs.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subs.FindBySubscriptionID(ctx, tx, p.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// subscriptions originate from created; never invent a placeholder
			log.Printf("[SubscriptionLifecycle] updated %s has no local record, skipping", p.ID)
			return nil
		}
		if err != nil {
			return err
		}

		sub.Status = status
		sub.CustomerID = p.Customer
		sub.PriceID = p.PriceID()
		sub.CurrentPeriodStart = dto.UnixTime(p.CurrentPeriodStart)
		sub.CurrentPeriodEnd = dto.UnixTime(p.CurrentPeriodEnd)
		sub.TrialStart = dto.UnixTime(p.TrialStart)
		sub.TrialEnd = dto.UnixTime(p.TrialEnd)
		sub.CanceledAt = dto.UnixTime(p.CanceledAt)
		sub.CancelAtPeriodEnd = p.CancelAtPeriodEnd
		if err := s.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		return s.syncTenant(ctx, tx, sub.TenantID, status, sub.CurrentPeriodEnd, p.CancelAtPeriodEnd)
	})
	if err != nil {
		return fmt.Errorf("subscription updated %s: %w", p.ID, err)
	}
	return nil
}

// HandleDeleted forces the terminal canceled state and deactivates the
// tenant. Only a new subscription-created event reactivates it.
func (s *subscriptionLifecycle) HandleDeleted(ctx context.Context, p *dto.SubscriptionPayload) error {
	err := s.subs.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subs.FindBySubscriptionID(ctx, tx, p.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[SubscriptionLifecycle] deleted %s has no local record, skipping", p.ID)
			return nil
		}
		if err != nil {
			return err
		}

		sub.Status = models.SubCanceled
		sub.CanceledAt = dto.UnixTime(p.CanceledAt)
		if sub.CanceledAt == nil {
			now := time.Now().UTC()
			sub.CanceledAt = &now
		}
		if err := s.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		return s.syncTenant(ctx, tx, sub.TenantID, models.SubCanceled, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd)
	})
	if err != nil {
		return fmt.Errorf("subscription deleted %s: %w", p.ID, err)
	}
	return nil
}

func (s *subscriptionLifecycle) syncTenant(ctx context.Context, tx *gorm.DB, tenantID uint, status models.SubscriptionStatus, endsAt *time.Time, cancelAtPeriodEnd bool) error {
	tenant, err := s.tenants.FindByID(ctx, tx, tenantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[SubscriptionLifecycle] tenant %d not found, activation not recomputed", tenantID)
		return nil
	}
	if err != nil {
		return err
	}

	applyBillingStatus(tenant, status)
	tenant.SubscriptionEndsAt = endsAt
	tenant.CancelAtPeriodEnd = cancelAtPeriodEnd
	return s.tenants.Save(ctx, tx, tenant)
}
