package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/noah-isme/backend-billing/internal/webhook"
)

const testSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload []byte, secret string) (body []byte, header string) {
	t.Helper()
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestVerifyValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","created":1700000000}`)
	body, header := signedPayload(t, payload, testSecret)

	event, err := webhook.Verifier{Secret: testSecret}.Verify(body, header)
	require.NoError(t, err)
	require.Equal(t, stripe.EventTypeCheckoutSessionCompleted, event.Type)
}

func TestVerifyWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	body, header := signedPayload(t, payload, "whsec_other_secret")

	_, err := webhook.Verifier{Secret: testSecret}.Verify(body, header)
	require.Error(t, err)
}

func TestVerifyTamperedBody(t *testing.T) {
	original := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	_, header := signedPayload(t, original, testSecret)
	tampered := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	_, err := webhook.Verifier{Secret: testSecret}.Verify(tampered, header)
	require.Error(t, err)
}

func TestVerifyMalformedHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	_, err := webhook.Verifier{Secret: testSecret}.Verify(payload, "not-a-signature")
	require.Error(t, err)
}

func TestVerifyNoSecretTrustsPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.payment_failed","created":1700000000}`)

	event, err := webhook.Verifier{}.Verify(payload, "garbage header ignored")
	require.NoError(t, err)
	require.Equal(t, stripe.EventTypePaymentIntentPaymentFailed, event.Type)
}

func TestVerifyNoSecretRejectsUnparseableBody(t *testing.T) {
	_, err := webhook.Verifier{}.Verify([]byte("not json"), "")
	require.Error(t, err)
}
