package notify

import (
	"log"
	"time"
)

// Publisher is satisfied by pkg/rabbitmq.Publisher.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Notifier emits fire-and-forget notification events for the email
// service. Publish failures are logged and never fail the caller.
type Notifier struct {
	pub Publisher
}

func New(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

type BookingConfirmedEvent struct {
	BookingID  uint      `json:"booking_id"`
	BundleID   uint      `json:"bundle_id,omitempty"`
	TenantID   uint      `json:"tenant_id"`
	CustomerID uint      `json:"customer_id"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n *Notifier) BookingConfirmed(evt BookingConfirmedEvent) {
	if n == nil || n.pub == nil {
		return
	}
	evt.OccurredAt = time.Now().UTC()
	if err := n.pub.Publish("booking.confirmed", evt); err != nil {
		log.Printf("[Notifier] publish booking.confirmed failed: %v", err)
	}
}
