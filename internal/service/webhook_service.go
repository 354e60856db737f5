package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/proteus100/acme-training/internal/dto"
	"github.com/proteus100/acme-training/internal/models"
	"github.com/proteus100/acme-training/internal/repository"
	"github.com/stripe/stripe-go/v82"
)

// Event types this service reconciles. Anything else is recorded in the
// ledger and ignored.
const (
	EventPaymentSucceeded        = "payment_intent.succeeded"
	EventPaymentFailed           = "payment_intent.payment_failed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoiceCreated          = "invoice.created"
	EventInvoiceFinalized        = "invoice.finalized"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// WebhookProcessor gates each verified delivery through the idempotency
// ledger and routes it to exactly one handler.
type WebhookProcessor interface {
	// Process returns duplicate=true when the event was already fully
	// processed and nothing was mutated.
	Process(ctx context.Context, event *stripe.Event) (duplicate bool, err error)
	StaleEvents(ctx context.Context, olderThan time.Duration) ([]models.WebhookEvent, error)
}

type webhookProcessor struct {
	events   repository.WebhookEventRepository
	payments PaymentReconciler
	subs     SubscriptionLifecycle
	invoices InvoiceReconciler
}

func NewWebhookProcessor(
	events repository.WebhookEventRepository,
	payments PaymentReconciler,
	subs SubscriptionLifecycle,
	invoices InvoiceReconciler,
) WebhookProcessor {
	return &webhookProcessor{
		events:   events,
		payments: payments,
		subs:     subs,
		invoices: invoices,
	}
}

func (s *webhookProcessor) Process(ctx context.Context, event *stripe.Event) (bool, error) {
	record := &models.WebhookEvent{
		EventID: event.ID,
		Type:    string(event.Type),
		Payload: string(event.Data.Raw),
	}

	// Record before processing. A collision means Stripe delivered this
	// event id before.
	if err := s.events.Insert(ctx, record); err != nil {
		if !errors.Is(err, repository.ErrDuplicateEvent) {
			return false, fmt.Errorf("record event %s: %w", event.ID, err)
		}

		existing, ferr := s.events.FindByEventID(ctx, event.ID)
		if ferr != nil {
			return false, fmt.Errorf("load recorded event %s: %w", event.ID, ferr)
		}
		if existing.Processed {
			log.Printf("[Webhook] duplicate delivery of %s (%s), skipping", event.ID, event.Type)
			return true, nil
		}
		// the previous attempt died mid-handler; handlers are safe to
		// re-run from a clean entity state
		log.Printf("[Webhook] retrying unprocessed event %s (%s)", event.ID, event.Type)
		record = existing
	}

	if err := s.dispatch(ctx, event); err != nil {
		// processed stays false; Stripe redelivers on our non-2xx
		return false, err
	}

	if err := s.events.MarkProcessed(ctx, record.ID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("mark event %s processed: %w", event.ID, err)
	}
	return false, nil
}

func (s *webhookProcessor) dispatch(ctx context.Context, event *stripe.Event) error {
	switch string(event.Type) {
	case EventPaymentSucceeded:
		p, err := decodePayload[dto.PaymentIntentPayload](event)
		if err != nil {
			return err
		}
		return s.payments.HandlePaymentSucceeded(ctx, p)
	case EventPaymentFailed:
		p, err := decodePayload[dto.PaymentIntentPayload](event)
		if err != nil {
			return err
		}
		return s.payments.HandlePaymentFailed(ctx, p)
	case EventSubscriptionCreated:
		p, err := decodePayload[dto.SubscriptionPayload](event)
		if err != nil {
			return err
		}
		return s.subs.HandleCreated(ctx, p)
	case EventSubscriptionUpdated:
		p, err := decodePayload[dto.SubscriptionPayload](event)
		if err != nil {
			return err
		}
		return s.subs.HandleUpdated(ctx, p)
	case EventSubscriptionDeleted:
		p, err := decodePayload[dto.SubscriptionPayload](event)
		if err != nil {
			return err
		}
		return s.subs.HandleDeleted(ctx, p)
	case EventInvoiceCreated:
		p, err := decodePayload[dto.InvoicePayload](event)
		if err != nil {
			return err
		}
		return s.invoices.HandleCreated(ctx, p)
	case EventInvoiceFinalized:
		p, err := decodePayload[dto.InvoicePayload](event)
		if err != nil {
			return err
		}
		return s.invoices.HandleFinalized(ctx, p)
	case EventInvoicePaymentSucceeded:
		p, err := decodePayload[dto.InvoicePayload](event)
		if err != nil {
			return err
		}
		return s.invoices.HandlePaymentSucceeded(ctx, p)
	case EventInvoicePaymentFailed:
		p, err := decodePayload[dto.InvoicePayload](event)
		if err != nil {
			return err
		}
		return s.invoices.HandlePaymentFailed(ctx, p)
	default:
		log.Printf("[Webhook] ignoring unhandled event type %s (%s)", event.Type, event.ID)
		return nil
	}
}

func (s *webhookProcessor) StaleEvents(ctx context.Context, olderThan time.Duration) ([]models.WebhookEvent, error) {
	return s.events.FindUnprocessedBefore(ctx, time.Now().Add(-olderThan))
}

func decodePayload[T any](event *stripe.Event) (*T, error) {
	var payload T
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return &payload, nil
}
