package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/noah-isme/backend-billing/internal/webhook"
)

func TestClassifyMapping(t *testing.T) {
	cases := []struct {
		eventType stripe.EventType
		want      webhook.Kind
	}{
		{stripe.EventTypeCheckoutSessionCompleted, webhook.KindPaymentSucceeded},
		{stripe.EventTypePaymentIntentPaymentFailed, webhook.KindPaymentFailed},
		{stripe.EventTypeCustomerSubscriptionDeleted, webhook.KindSubscriptionCancelled},
		{stripe.EventTypeCustomerSubscriptionUpdated, webhook.KindSubscriptionUpdated},
	}
	for _, tc := range cases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			event, ok := webhook.Classify(stripe.Event{Type: tc.eventType, Created: 1700000000})
			require.True(t, ok)
			require.Equal(t, tc.want, event.Kind)
			require.Equal(t, time.Unix(1700000000, 0).UTC(), event.Timestamp)
		})
	}
}

func TestClassifyUnknownType(t *testing.T) {
	for _, eventType := range []stripe.EventType{
		"invoice.paid",
		"customer.created",
		"",
		"checkout.session.expired",
	} {
		_, ok := webhook.Classify(stripe.Event{Type: eventType})
		require.False(t, ok, "expected %q to be dropped", eventType)
	}
}

func TestClassifyIsRepeatable(t *testing.T) {
	payload := stripe.Event{Type: stripe.EventTypeCheckoutSessionCompleted, Created: 1712345678}

	first, ok := webhook.Classify(payload)
	require.True(t, ok)
	second, ok := webhook.Classify(payload)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestKindLabels(t *testing.T) {
	require.Equal(t, "payment succeeded", webhook.KindPaymentSucceeded.Label())
	require.Equal(t, "payment failed", webhook.KindPaymentFailed.Label())
	require.Equal(t, "subscription cancelled", webhook.KindSubscriptionCancelled.Label())
	require.Equal(t, "subscription updated", webhook.KindSubscriptionUpdated.Label())
}
