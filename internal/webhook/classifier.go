package webhook

import (
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Kind enumerates the closed set of domain event kinds this service records.
type Kind string

const (
	KindPaymentSucceeded      Kind = "payment_succeeded"
	KindPaymentFailed         Kind = "payment_failed"
	KindSubscriptionCancelled Kind = "subscription_cancelled"
	KindSubscriptionUpdated   Kind = "subscription_updated"
)

// Label returns the human-readable form persisted to the event log.
func (k Kind) Label() string {
	switch k {
	case KindPaymentSucceeded:
		return "payment succeeded"
	case KindPaymentFailed:
		return "payment failed"
	case KindSubscriptionCancelled:
		return "subscription cancelled"
	case KindSubscriptionUpdated:
		return "subscription updated"
	default:
		return string(k)
	}
}

// DomainEvent is the classified projection of one provider notification.
// Immutable once created.
type DomainEvent struct {
	Kind      Kind
	Timestamp time.Time
}

// kindByEventType is the full mapping from provider event types to domain
// kinds. Event types outside this table are dropped, not errors.
var kindByEventType = map[stripe.EventType]Kind{
	stripe.EventTypeCheckoutSessionCompleted:    KindPaymentSucceeded,
	stripe.EventTypePaymentIntentPaymentFailed:  KindPaymentFailed,
	stripe.EventTypeCustomerSubscriptionDeleted: KindSubscriptionCancelled,
	stripe.EventTypeCustomerSubscriptionUpdated: KindSubscriptionUpdated,
}

// Classify maps a verified notification to at most one DomainEvent.
// Classification is pure: the same payload always yields the same result,
// and duplicate deliveries yield duplicate events. The reported bool is
// false for event types outside the mapping.
func Classify(event stripe.Event) (DomainEvent, bool) {
	kind, ok := kindByEventType[event.Type]
	if !ok {
		return DomainEvent{}, false
	}
	return DomainEvent{
		Kind:      kind,
		Timestamp: time.Unix(event.Created, 0).UTC(),
	}, true
}
