// Package billing creates and retrieves provider-hosted checkout and
// billing portal sessions.
package billing

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

// SessionRef identifies a provider-hosted checkout session. The id is
// opaque and provider-issued; it is never generated locally.
type SessionRef struct {
	ID string `json:"sessionId"`
}

// PortalRef is the redirect target for a billing portal session. One portal
// session per request; never cached.
type PortalRef struct {
	URL string `json:"url"`
}

// Gateway abstracts the session operations required from the payment
// provider.
type Gateway interface {
	// CreateCheckoutSession opens a subscription checkout for the given
	// price with quantity 1.
	CreateCheckoutSession(ctx context.Context, priceID string) (SessionRef, error)
	// GetCheckoutSession returns the provider's view of an existing session.
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
	// CreatePortalSession opens a billing portal for the customer attached
	// to the given checkout session.
	//
	// Resolving the customer from a client-echoed session id is a trust
	// shortcut carried over from the storefront demo flow; a production
	// deployment should resolve the customer from authenticated session
	// state instead.
	CreatePortalSession(ctx context.Context, sessionID string) (PortalRef, error)
}
