package dto

import (
	"errors"
	"strconv"
	"time"
)

// Wire shapes for the slices of Stripe event payloads this service
// consumes, decoded from event.Data.Raw.

var ErrNoPurchaseRef = errors.New("payment intent metadata carries no booking reference")

type PaymentIntentPayload struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

type PurchaseKind string

const (
	PurchaseSingle PurchaseKind = "single"
	PurchaseBundle PurchaseKind = "bundle"
)

// PurchaseRef is the discriminated booking reference carried in payment
// intent metadata: either a single booking or a bundle booking, never both.
type PurchaseRef struct {
	Kind            PurchaseKind
	BookingID       uint
	BundleBookingID uint
}

// PurchaseRef resolves the metadata tag once, so handlers dispatch on the
// kind instead of re-comparing metadata strings.
func (p *PaymentIntentPayload) PurchaseRef() (PurchaseRef, error) {
	if p.Metadata["bookingType"] == "bundle" {
		id, err := parseEntityID(p.Metadata["bundleBookingId"])
		if err != nil {
			return PurchaseRef{}, ErrNoPurchaseRef
		}
		return PurchaseRef{Kind: PurchaseBundle, BundleBookingID: id}, nil
	}
	id, err := parseEntityID(p.Metadata["bookingId"])
	if err != nil {
		return PurchaseRef{}, ErrNoPurchaseRef
	}
	return PurchaseRef{Kind: PurchaseSingle, BookingID: id}, nil
}

type SubscriptionPayload struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	TrialStart         int64             `json:"trial_start"`
	TrialEnd           int64             `json:"trial_end"`
	CanceledAt         int64             `json:"canceled_at"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// TenantID extracts the tenant attribution from subscription metadata.
func (s *SubscriptionPayload) TenantID() (uint, bool) {
	id, err := parseEntityID(s.Metadata["tenantId"])
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *SubscriptionPayload) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

type InvoicePayload struct {
	ID                string `json:"id"`
	Subscription      string `json:"subscription"`
	Status            string `json:"status"`
	AmountPaid        int64  `json:"amount_paid"`
	AmountDue         int64  `json:"amount_due"`
	Currency          string `json:"currency"`
	DueDate           int64  `json:"due_date"`
	HostedInvoiceURL  string `json:"hosted_invoice_url"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

// UnixTime converts a Stripe epoch-seconds field, where zero means unset.
func UnixTime(v int64) *time.Time {
	if v == 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}

func parseEntityID(s string) (uint, error) {
	if s == "" {
		return 0, errors.New("empty id")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
