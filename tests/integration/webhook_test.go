//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/proteus100/acme-training/internal/models"
	"github.com/proteus100/acme-training/internal/repository"
	"github.com/proteus100/acme-training/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func newProcessor() service.WebhookProcessor {
	eventRepo := repository.NewWebhookEventRepository(testDB)
	bookingRepo := repository.NewBookingRepository(testDB)
	bundleRepo := repository.NewBundleBookingRepository(testDB)
	paymentRepo := repository.NewPaymentRepository(testDB)
	sessionRepo := repository.NewSessionRepository(testDB)
	subRepo := repository.NewSubscriptionRepository(testDB)
	invoiceRepo := repository.NewInvoiceRepository(testDB)
	tenantRepo := repository.NewTenantRepository(testDB)

	payments := service.NewPaymentReconciler(bookingRepo, bundleRepo, paymentRepo, sessionRepo, nil)
	subs := service.NewSubscriptionLifecycle(subRepo, tenantRepo)
	invoices := service.NewInvoiceReconciler(invoiceRepo, subRepo, tenantRepo)
	return service.NewWebhookProcessor(eventRepo, payments, subs, invoices)
}

func stripeEvent(t *testing.T, id, eventType string, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func createTenant(t *testing.T, name string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Name: name, Slug: name}
	require.NoError(t, testDB.Create(tenant).Error)
	return tenant
}

func createSession(t *testing.T, tenantID uint, spots int) *models.CourseSession {
	t.Helper()
	session := &models.CourseSession{TenantID: tenantID, CourseID: 1, AvailableSpots: spots}
	require.NoError(t, testDB.Create(session).Error)
	return session
}

func createBooking(t *testing.T, tenantID, sessionID uint, amount int64, intentID string) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		TenantID:        tenantID,
		CustomerID:      1,
		CourseSessionID: sessionID,
		TotalAmount:     amount,
		Status:          models.BookingPending,
	}
	require.NoError(t, testDB.Create(booking).Error)
	require.NoError(t, testDB.Create(&models.Payment{
		TenantID:        tenantID,
		BookingID:       booking.ID,
		Amount:          amount,
		Status:          models.PaymentPending,
		PaymentIntentID: intentID,
	}).Error)
	return booking
}

func paymentSucceededEvent(t *testing.T, eventID, intentID string, amount int64, bookingID uint) *stripe.Event {
	return stripeEvent(t, eventID, service.EventPaymentSucceeded, map[string]any{
		"id":       intentID,
		"amount":   amount,
		"metadata": map[string]string{"bookingId": fmt.Sprint(bookingID)},
	})
}

// Scenario: payment succeeded for a single booking confirms it, moves the
// seat counter by one and marks the payment paid.
func TestPaymentSucceeded_SingleBooking(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	session := createSession(t, tenant.ID, 10)
	booking := createBooking(t, tenant.ID, session.ID, 45000, "pi_a1")
	svc := newProcessor()

	duplicate, err := svc.Process(context.Background(), paymentSucceededEvent(t, "evt_a1", "pi_a1", 45000, booking.ID))

	require.NoError(t, err)
	assert.False(t, duplicate)

	var gotBooking models.Booking
	require.NoError(t, testDB.First(&gotBooking, booking.ID).Error)
	assert.Equal(t, models.BookingConfirmed, gotBooking.Status)

	var gotSession models.CourseSession
	require.NoError(t, testDB.First(&gotSession, session.ID).Error)
	assert.Equal(t, 1, gotSession.BookedSpots)

	var payment models.Payment
	require.NoError(t, testDB.Where("booking_id = ?", booking.ID).First(&payment).Error)
	assert.Equal(t, models.PaymentPaid, payment.Status)
	assert.NotNil(t, payment.PaidAt)

	var ledger models.WebhookEvent
	require.NoError(t, testDB.Where("event_id = ?", "evt_a1").First(&ledger).Error)
	assert.True(t, ledger.Processed)
	assert.NotNil(t, ledger.ProcessedAt)
}

// Scenario: the identical event delivered twice changes nothing the
// second time.
func TestPaymentSucceeded_DuplicateDelivery(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	session := createSession(t, tenant.ID, 10)
	booking := createBooking(t, tenant.ID, session.ID, 45000, "pi_b1")
	svc := newProcessor()

	event := paymentSucceededEvent(t, "evt_b1", "pi_b1", 45000, booking.ID)

	duplicate, err := svc.Process(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, duplicate)

	duplicate, err = svc.Process(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, duplicate)

	var gotSession models.CourseSession
	require.NoError(t, testDB.First(&gotSession, session.ID).Error)
	assert.Equal(t, 1, gotSession.BookedSpots, "seat counter must move once, not twice")
}

// A redelivery that slips past the ledger under a fresh event id still
// cannot double-count: the counter only moves on the edge into confirmed.
func TestPaymentSucceeded_LedgerBypassIsStillIdempotent(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	session := createSession(t, tenant.ID, 10)
	booking := createBooking(t, tenant.ID, session.ID, 45000, "pi_c1")
	svc := newProcessor()

	_, err := svc.Process(context.Background(), paymentSucceededEvent(t, "evt_c1", "pi_c1", 45000, booking.ID))
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), paymentSucceededEvent(t, "evt_c2", "pi_c1", 45000, booking.ID))
	require.NoError(t, err)

	var gotSession models.CourseSession
	require.NoError(t, testDB.First(&gotSession, session.ID).Error)
	assert.Equal(t, 1, gotSession.BookedSpots)
}

// Scenario: a failed payment cancels the booking and leaves the counter
// alone.
func TestPaymentFailed_CancelsBooking(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	session := createSession(t, tenant.ID, 10)
	booking := createBooking(t, tenant.ID, session.ID, 30000, "pi_f1")
	svc := newProcessor()

	event := stripeEvent(t, "evt_f1", service.EventPaymentFailed, map[string]any{
		"id":       "pi_f1",
		"metadata": map[string]string{"bookingId": fmt.Sprint(booking.ID)},
	})

	_, err := svc.Process(context.Background(), event)
	require.NoError(t, err)

	var gotBooking models.Booking
	require.NoError(t, testDB.First(&gotBooking, booking.ID).Error)
	assert.Equal(t, models.BookingCancelled, gotBooking.Status)

	var gotSession models.CourseSession
	require.NoError(t, testDB.First(&gotSession, session.ID).Error)
	assert.Equal(t, 0, gotSession.BookedSpots)

	var payment models.Payment
	require.NoError(t, testDB.Where("booking_id = ?", booking.ID).First(&payment).Error)
	assert.Equal(t, models.PaymentFailed, payment.Status)
}

// Cancelled is terminal: a late success neither confirms nor counts.
func TestPaymentSucceeded_CancelledBookingStaysCancelled(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	session := createSession(t, tenant.ID, 10)
	booking := createBooking(t, tenant.ID, session.ID, 30000, "pi_g1")
	require.NoError(t, testDB.Model(booking).Update("status", models.BookingCancelled).Error)
	svc := newProcessor()

	_, err := svc.Process(context.Background(), paymentSucceededEvent(t, "evt_g1", "pi_g1", 30000, booking.ID))
	require.NoError(t, err)

	var gotBooking models.Booking
	require.NoError(t, testDB.First(&gotBooking, booking.ID).Error)
	assert.Equal(t, models.BookingCancelled, gotBooking.Status)

	var gotSession models.CourseSession
	require.NoError(t, testDB.First(&gotSession, session.ID).Error)
	assert.Equal(t, 0, gotSession.BookedSpots)
}

// A bundle purchase confirms as a unit: every referenced session's
// counter moves together, exactly once.
func TestPaymentSucceeded_BundleBooking(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	s1 := createSession(t, tenant.ID, 10)
	s2 := createSession(t, tenant.ID, 8)

	bundle := &models.BundleBooking{
		TenantID:    tenant.ID,
		CustomerID:  1,
		TotalAmount: 90000,
		Status:      models.BookingPending,
		Sessions:    []models.CourseSession{*s1, *s2},
	}
	require.NoError(t, testDB.Create(bundle).Error)
	require.NoError(t, testDB.Create(&models.BundlePayment{
		TenantID:        tenant.ID,
		BundleBookingID: bundle.ID,
		Amount:          90000,
		Status:          models.PaymentPending,
		PaymentIntentID: "pi_bundle1",
	}).Error)

	svc := newProcessor()
	event := stripeEvent(t, "evt_bundle1", service.EventPaymentSucceeded, map[string]any{
		"id":     "pi_bundle1",
		"amount": 90000,
		"metadata": map[string]string{
			"bookingType":     "bundle",
			"bundleBookingId": fmt.Sprint(bundle.ID),
		},
	})

	_, err := svc.Process(context.Background(), event)
	require.NoError(t, err)

	var gotBundle models.BundleBooking
	require.NoError(t, testDB.First(&gotBundle, bundle.ID).Error)
	assert.Equal(t, models.BookingConfirmed, gotBundle.Status)

	for _, id := range []uint{s1.ID, s2.ID} {
		var gotSession models.CourseSession
		require.NoError(t, testDB.First(&gotSession, id).Error)
		assert.Equal(t, 1, gotSession.BookedSpots, "session %d", id)
	}

	var bundlePayment models.BundlePayment
	require.NoError(t, testDB.Where("bundle_booking_id = ?", bundle.ID).First(&bundlePayment).Error)
	assert.Equal(t, models.PaymentPaid, bundlePayment.Status)
	assert.NotNil(t, bundlePayment.PaidAt)
}

// A missing booking is a data anomaly, not a retryable failure: the
// event completes and is marked processed.
func TestPaymentSucceeded_UnknownBooking(t *testing.T) {
	cleanTables()
	svc := newProcessor()

	duplicate, err := svc.Process(context.Background(), paymentSucceededEvent(t, "evt_missing", "pi_x", 1000, 9999))

	require.NoError(t, err)
	assert.False(t, duplicate)

	var ledger models.WebhookEvent
	require.NoError(t, testDB.Where("event_id = ?", "evt_missing").First(&ledger).Error)
	assert.True(t, ledger.Processed)
}

func subscriptionEvent(t *testing.T, eventID, eventType, subID, status string, tenantID uint) *stripe.Event {
	return stripeEvent(t, eventID, eventType, map[string]any{
		"id":                   subID,
		"customer":             "cus_1",
		"status":               status,
		"current_period_start": 1700000000,
		"current_period_end":   1702592000,
		"cancel_at_period_end": false,
		"metadata":             map[string]string{"tenantId": fmt.Sprint(tenantID)},
		"items": map[string]any{
			"data": []map[string]any{{"price": map[string]any{"id": "price_standard"}}},
		},
	})
}

// Scenario: past_due flips the gate off; a paid invoice flips it back on.
func TestSubscriptionPastDueThenInvoiceRecovery(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	svc := newProcessor()

	_, err := svc.Process(context.Background(), subscriptionEvent(t, "evt_s1", service.EventSubscriptionCreated, "sub_1", "trialing", tenant.ID))
	require.NoError(t, err)

	var gotTenant models.Tenant
	require.NoError(t, testDB.First(&gotTenant, tenant.ID).Error)
	assert.True(t, gotTenant.Active)
	assert.Equal(t, models.TenantSubTrialing, gotTenant.SubscriptionStatus)

	_, err = svc.Process(context.Background(), subscriptionEvent(t, "evt_s2", service.EventSubscriptionUpdated, "sub_1", "past_due", tenant.ID))
	require.NoError(t, err)

	require.NoError(t, testDB.First(&gotTenant, tenant.ID).Error)
	assert.False(t, gotTenant.Active)
	assert.Equal(t, models.TenantSubPastDue, gotTenant.SubscriptionStatus)

	_, err = svc.Process(context.Background(), stripeEvent(t, "evt_s3", service.EventInvoicePaymentSucceeded, map[string]any{
		"id":                 "in_1",
		"subscription":       "sub_1",
		"status":             "paid",
		"amount_paid":        9900,
		"amount_due":         9900,
		"currency":           "gbp",
		"status_transitions": map[string]any{"paid_at": 1700001000},
	}))
	require.NoError(t, err)

	require.NoError(t, testDB.First(&gotTenant, tenant.ID).Error)
	assert.True(t, gotTenant.Active)
	assert.Equal(t, models.TenantSubActive, gotTenant.SubscriptionStatus)

	var invoice models.SubscriptionInvoice
	require.NoError(t, testDB.Where("invoice_id = ?", "in_1").First(&invoice).Error)
	assert.Equal(t, models.InvoicePaid, invoice.Status)
	assert.Equal(t, int64(9900), invoice.AmountPaid)
	assert.NotNil(t, invoice.PaidAt)
}

// Deletion is final: later invoice events cannot reactivate the tenant.
func TestSubscriptionDeleted_Finality(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	svc := newProcessor()

	_, err := svc.Process(context.Background(), subscriptionEvent(t, "evt_d1", service.EventSubscriptionCreated, "sub_2", "active", tenant.ID))
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), subscriptionEvent(t, "evt_d2", service.EventSubscriptionDeleted, "sub_2", "canceled", tenant.ID))
	require.NoError(t, err)

	var gotTenant models.Tenant
	require.NoError(t, testDB.First(&gotTenant, tenant.ID).Error)
	assert.False(t, gotTenant.Active)
	assert.Equal(t, models.TenantSubCanceled, gotTenant.SubscriptionStatus)

	var sub models.TenantSubscription
	require.NoError(t, testDB.Where("subscription_id = ?", "sub_2").First(&sub).Error)
	assert.Equal(t, models.SubCanceled, sub.Status)
	assert.NotNil(t, sub.CanceledAt)

	_, err = svc.Process(context.Background(), stripeEvent(t, "evt_d3", service.EventInvoicePaymentSucceeded, map[string]any{
		"id":           "in_2",
		"subscription": "sub_2",
		"amount_paid":  9900,
	}))
	require.NoError(t, err)

	require.NoError(t, testDB.First(&gotTenant, tenant.ID).Error)
	assert.False(t, gotTenant.Active, "a paid invoice must not resurrect a deleted subscription")

	_, err = svc.Process(context.Background(), subscriptionEvent(t, "evt_d4", service.EventSubscriptionCreated, "sub_3", "active", tenant.ID))
	require.NoError(t, err)

	require.NoError(t, testDB.First(&gotTenant, tenant.ID).Error)
	assert.True(t, gotTenant.Active, "a new subscription reactivates the tenant")
}

// Scenario: invoice.created with no matching subscription creates nothing
// and raises nothing.
func TestInvoiceCreated_UnknownSubscription(t *testing.T) {
	cleanTables()
	svc := newProcessor()

	_, err := svc.Process(context.Background(), stripeEvent(t, "evt_i1", service.EventInvoiceCreated, map[string]any{
		"id":           "in_orphan",
		"subscription": "sub_nope",
		"status":       "draft",
		"amount_due":   9900,
	}))
	require.NoError(t, err)

	var count int64
	testDB.Model(&models.SubscriptionInvoice{}).Count(&count)
	assert.Zero(t, count)
}

func TestInvoiceCreatedAndFinalized(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	svc := newProcessor()

	_, err := svc.Process(context.Background(), subscriptionEvent(t, "evt_if0", service.EventSubscriptionCreated, "sub_4", "active", tenant.ID))
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), stripeEvent(t, "evt_if1", service.EventInvoiceCreated, map[string]any{
		"id":           "in_4",
		"subscription": "sub_4",
		"status":       "draft",
		"amount_due":   9900,
		"currency":     "gbp",
		"due_date":     1702592000,
	}))
	require.NoError(t, err)

	var invoice models.SubscriptionInvoice
	require.NoError(t, testDB.Where("invoice_id = ?", "in_4").First(&invoice).Error)
	assert.Equal(t, models.InvoiceDraft, invoice.Status)
	assert.Equal(t, tenant.ID, invoice.TenantID)

	_, err = svc.Process(context.Background(), stripeEvent(t, "evt_if2", service.EventInvoiceFinalized, map[string]any{
		"id":                 "in_4",
		"subscription":       "sub_4",
		"amount_due":         9900,
		"hosted_invoice_url": "https://invoice.stripe.com/i/in_4",
	}))
	require.NoError(t, err)

	require.NoError(t, testDB.Where("invoice_id = ?", "in_4").First(&invoice).Error)
	assert.Equal(t, models.InvoiceOpen, invoice.Status)
	assert.Equal(t, "https://invoice.stripe.com/i/in_4", invoice.HostedInvoiceURL)
}

// A failed invoice marks past-due but keeps the gate open: the grace
// period ends only with an explicit subscription-deleted event.
func TestInvoicePaymentFailed_GracePeriod(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	svc := newProcessor()

	_, err := svc.Process(context.Background(), subscriptionEvent(t, "evt_p1", service.EventSubscriptionCreated, "sub_5", "active", tenant.ID))
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), stripeEvent(t, "evt_p2", service.EventInvoicePaymentFailed, map[string]any{
		"id":           "in_5",
		"subscription": "sub_5",
		"amount_due":   9900,
		"currency":     "gbp",
	}))
	require.NoError(t, err)

	var gotTenant models.Tenant
	require.NoError(t, testDB.First(&gotTenant, tenant.ID).Error)
	assert.Equal(t, models.TenantSubPastDue, gotTenant.SubscriptionStatus)
	assert.True(t, gotTenant.Active, "a single failed invoice must not deactivate")

	var invoice models.SubscriptionInvoice
	require.NoError(t, testDB.Where("invoice_id = ?", "in_5").First(&invoice).Error)
	assert.Equal(t, models.InvoiceOpen, invoice.Status)
}

// Out-of-order: updated before created is dropped, then created lands.
func TestSubscriptionUpdated_BeforeCreated(t *testing.T) {
	cleanTables()
	tenant := createTenant(t, "acme")
	svc := newProcessor()

	_, err := svc.Process(context.Background(), subscriptionEvent(t, "evt_o1", service.EventSubscriptionUpdated, "sub_6", "active", tenant.ID))
	require.NoError(t, err)

	var count int64
	testDB.Model(&models.TenantSubscription{}).Count(&count)
	assert.Zero(t, count, "updated must never invent a subscription")

	_, err = svc.Process(context.Background(), subscriptionEvent(t, "evt_o2", service.EventSubscriptionCreated, "sub_6", "active", tenant.ID))
	require.NoError(t, err)

	testDB.Model(&models.TenantSubscription{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
