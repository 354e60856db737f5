package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/proteus100/acme-training/internal/dto"
	"github.com/proteus100/acme-training/internal/models"
	"github.com/proteus100/acme-training/internal/notify"
	"github.com/proteus100/acme-training/internal/repository"
	"gorm.io/gorm"
)

// PaymentReconciler applies payment-intent outcomes to bookings,
// payments and session capacity counters.
type PaymentReconciler interface {
	HandlePaymentSucceeded(ctx context.Context, pi *dto.PaymentIntentPayload) error
	HandlePaymentFailed(ctx context.Context, pi *dto.PaymentIntentPayload) error
}

type paymentReconciler struct {
	bookings repository.BookingRepository
	bundles  repository.BundleBookingRepository
	payments repository.PaymentRepository
	sessions repository.SessionRepository
	notifier *notify.Notifier
}

func NewPaymentReconciler(
	bookings repository.BookingRepository,
	bundles repository.BundleBookingRepository,
	payments repository.PaymentRepository,
	sessions repository.SessionRepository,
	notifier *notify.Notifier,
) PaymentReconciler {
	return &paymentReconciler{
		bookings: bookings,
		bundles:  bundles,
		payments: payments,
		sessions: sessions,
		notifier: notifier,
	}
}

func (s *paymentReconciler) HandlePaymentSucceeded(ctx context.Context, pi *dto.PaymentIntentPayload) error {
	ref, err := pi.PurchaseRef()
	if err != nil {
		log.Printf("[PaymentReconciler] intent %s carries no booking reference, skipping", pi.ID)
		return nil
	}

	switch ref.Kind {
	case dto.PurchaseBundle:
		return s.reconcileBundleSucceeded(ctx, ref.BundleBookingID, pi)
	default:
		return s.reconcileBookingSucceeded(ctx, ref.BookingID, pi)
	}
}

func (s *paymentReconciler) reconcileBookingSucceeded(ctx context.Context, bookingID uint, pi *dto.PaymentIntentPayload) error {
	var confirmed *models.Booking

	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByID(ctx, tx, bookingID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PaymentReconciler] booking %d not found for intent %s", bookingID, pi.ID)
			return nil
		}
		if err != nil {
			return err
		}

		if booking.Status == models.BookingCancelled {
			// cancelled is terminal; a late success never resurrects it
			log.Printf("[PaymentReconciler] booking %d is cancelled, ignoring late success for intent %s", booking.ID, pi.ID)
			return nil
		}

		if _, err := s.sessions.FindByIDForUpdate(ctx, tx, booking.CourseSessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[PaymentReconciler] session %d not found for booking %d", booking.CourseSessionID, booking.ID)
				return nil
			}
			return err
		}

		// Seat counter moves only on the edge into confirmed. Confirm is a
		// guarded update, so duplicate deliveries that slip past the ledger
		// cannot double-count.
		moved, err := s.bookings.Confirm(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if moved {
			if err := s.sessions.IncrementBookedSpots(ctx, tx, booking.CourseSessionID); err != nil {
				return err
			}
			confirmed = booking
		}

		rows, err := s.payments.MarkPaid(ctx, tx, booking.ID, pi.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		if rows == 0 {
			log.Printf("[PaymentReconciler] no payment row for booking %d intent %s", booking.ID, pi.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reconcile booking %d: %w", bookingID, err)
	}

	if confirmed != nil {
		s.notifier.BookingConfirmed(notify.BookingConfirmedEvent{
			BookingID:  confirmed.ID,
			TenantID:   confirmed.TenantID,
			CustomerID: confirmed.CustomerID,
			Amount:     pi.Amount,
		})
	}
	return nil
}

func (s *paymentReconciler) reconcileBundleSucceeded(ctx context.Context, bundleID uint, pi *dto.PaymentIntentPayload) error {
	var confirmed *models.BundleBooking

	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bundle, err := s.bundles.FindByIDWithSessions(ctx, tx, bundleID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PaymentReconciler] bundle booking %d not found for intent %s", bundleID, pi.ID)
			return nil
		}
		if err != nil {
			return err
		}

		if bundle.Status == models.BookingCancelled {
			log.Printf("[PaymentReconciler] bundle booking %d is cancelled, ignoring late success for intent %s", bundle.ID, pi.ID)
			return nil
		}

		// stable lock order across concurrent deliveries
		sessions := bundle.Sessions
		sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

		for _, session := range sessions {
			if _, err := s.sessions.FindByIDForUpdate(ctx, tx, session.ID); err != nil {
				return err
			}
		}

		moved, err := s.bundles.Confirm(ctx, tx, bundle.ID)
		if err != nil {
			return err
		}
		if moved {
			for _, session := range sessions {
				if err := s.sessions.IncrementBookedSpots(ctx, tx, session.ID); err != nil {
					return err
				}
			}
			confirmed = bundle
		}

		rows, err := s.bundles.MarkPaymentsPaid(ctx, tx, bundle.ID, pi.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		if rows == 0 {
			log.Printf("[PaymentReconciler] no bundle payment row for bundle %d intent %s", bundle.ID, pi.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reconcile bundle booking %d: %w", bundleID, err)
	}

	if confirmed != nil {
		s.notifier.BookingConfirmed(notify.BookingConfirmedEvent{
			BundleID:   confirmed.ID,
			TenantID:   confirmed.TenantID,
			CustomerID: confirmed.CustomerID,
			Amount:     pi.Amount,
		})
	}
	return nil
}

func (s *paymentReconciler) HandlePaymentFailed(ctx context.Context, pi *dto.PaymentIntentPayload) error {
	ref, err := pi.PurchaseRef()
	if err != nil {
		log.Printf("[PaymentReconciler] intent %s carries no booking reference, skipping", pi.ID)
		return nil
	}

	switch ref.Kind {
	case dto.PurchaseBundle:
		return s.reconcileBundleFailed(ctx, ref.BundleBookingID, pi)
	default:
		return s.reconcileBookingFailed(ctx, ref.BookingID, pi)
	}
}

// Failed payments cancel the booking outright; the customer starts a new
// purchase. No session counter changes here.
func (s *paymentReconciler) reconcileBookingFailed(ctx context.Context, bookingID uint, pi *dto.PaymentIntentPayload) error {
	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByID(ctx, tx, bookingID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PaymentReconciler] booking %d not found for failed intent %s", bookingID, pi.ID)
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.bookings.UpdateStatus(ctx, tx, booking.ID, models.BookingCancelled); err != nil {
			return err
		}
		if _, err := s.payments.MarkFailed(ctx, tx, booking.ID, pi.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}
	return nil
}

func (s *paymentReconciler) reconcileBundleFailed(ctx context.Context, bundleID uint, pi *dto.PaymentIntentPayload) error {
	err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bundle, err := s.bundles.FindByIDWithSessions(ctx, tx, bundleID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PaymentReconciler] bundle booking %d not found for failed intent %s", bundleID, pi.ID)
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.bundles.UpdateStatus(ctx, tx, bundle.ID, models.BookingCancelled); err != nil {
			return err
		}
		if _, err := s.bundles.MarkPaymentsFailed(ctx, tx, bundle.ID, pi.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel bundle booking %d: %w", bundleID, err)
	}
	return nil
}
