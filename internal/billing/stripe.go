package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/noah-isme/backend-billing/internal/common"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	Client  *stripe.Client
	Domain  string
	Timeout time.Duration
}

// NewStripeGateway builds a gateway with its own client instance.
func NewStripeGateway(secretKey, domain string, timeout time.Duration) *StripeGateway {
	return &StripeGateway{
		Client:  stripe.NewClient(secretKey, nil),
		Domain:  strings.TrimRight(domain, "/"),
		Timeout: timeout,
	}
}

// CreateCheckoutSession opens a subscription-mode checkout session for one
// unit of the given price. The success URL keeps the {CHECKOUT_SESSION_ID}
// placeholder literal: the provider substitutes the real session id at
// redirect time, so it must not be resolved locally.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, priceID string) (SessionRef, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.Domain + "/success.html?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.Domain + "/canceled.html"),
	}
	session, err := g.Client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return SessionRef{}, asProviderError(err)
	}
	return SessionRef{ID: session.ID}, nil
}

// GetCheckoutSession retrieves the provider's record of a session.
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	session, err := g.Client.V1CheckoutSessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		return nil, asProviderError(err)
	}
	return session, nil
}

// CreatePortalSession resolves the customer from the checkout session, then
// opens a billing portal session returning to the configured domain.
func (g *StripeGateway) CreatePortalSession(ctx context.Context, sessionID string) (PortalRef, error) {
	session, err := g.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return PortalRef{}, err
	}
	if session.Customer == nil || session.Customer.ID == "" {
		return PortalRef{}, common.NewAppError("NO_CUSTOMER", "checkout session has no customer", http.StatusBadRequest, nil)
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	portal, err := g.Client.V1BillingPortalSessions.Create(ctx, &stripe.BillingPortalSessionCreateParams{
		Customer:  stripe.String(session.Customer.ID),
		ReturnURL: stripe.String(g.Domain),
	})
	if err != nil {
		return PortalRef{}, asProviderError(err)
	}
	return PortalRef{URL: portal.URL}, nil
}

func (g *StripeGateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.Timeout)
}

// asProviderError converts a Stripe failure into an AppError carrying the
// provider's message. Unknown identifiers surface as 404; everything else
// is a 400 so remote faults never crash the request path.
func asProviderError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		message := stripeErr.Msg
		if message == "" {
			message = "payment provider rejected the request"
		}
		status := http.StatusBadRequest
		code := "PROVIDER_ERROR"
		if stripeErr.Code == stripe.ErrorCodeResourceMissing {
			status = http.StatusNotFound
			code = "SESSION_NOT_FOUND"
		}
		return common.NewAppError(code, message, status, err)
	}
	return common.NewAppError("PROVIDER_UNAVAILABLE", err.Error(), http.StatusBadRequest, err)
}
