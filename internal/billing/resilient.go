package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/resilience"
	"github.com/stripe/stripe-go/v82"
)

// ResilientGateway guards provider calls with a circuit breaker. Session
// creation is never retried (the provider call is not idempotent without an
// idempotency key), but the read path retries transient failures with
// exponential backoff.
type ResilientGateway struct {
	Inner       Gateway
	Breaker     *resilience.Breaker
	RetryReads  int
	BaseBackoff time.Duration
}

// NewResilientGateway wraps inner with a breaker targeting the payment provider.
func NewResilientGateway(inner Gateway, breaker *resilience.Breaker) *ResilientGateway {
	return &ResilientGateway{
		Inner:       inner,
		Breaker:     breaker,
		RetryReads:  2,
		BaseBackoff: 100 * time.Millisecond,
	}
}

var errProviderUnavailable = &common.AppError{
	Code:       "PROVIDER_UNAVAILABLE",
	Message:    "payment provider temporarily unavailable",
	HTTPStatus: http.StatusServiceUnavailable,
	Err:        resilience.ErrOpenCircuit,
}

func (g *ResilientGateway) CreateCheckoutSession(ctx context.Context, priceID string) (SessionRef, error) {
	if !g.Breaker.Allow(ctx) {
		return SessionRef{}, errProviderUnavailable
	}
	ref, err := g.Inner.CreateCheckoutSession(ctx, priceID)
	g.Breaker.Report(ctx, !isProviderOutage(err))
	return ref, err
}

func (g *ResilientGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	var session *stripe.CheckoutSession
	var err error
	attempts := g.RetryReads + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if !g.Breaker.Allow(ctx) {
			return nil, errProviderUnavailable
		}
		session, err = g.Inner.GetCheckoutSession(ctx, sessionID)
		g.Breaker.Report(ctx, !isProviderOutage(err))
		if err == nil || !isProviderOutage(err) {
			return session, err
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(resilience.Backoff(g.BaseBackoff, attempt, 0.2))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, err
}

func (g *ResilientGateway) CreatePortalSession(ctx context.Context, sessionID string) (PortalRef, error) {
	if !g.Breaker.Allow(ctx) {
		return PortalRef{}, errProviderUnavailable
	}
	ref, err := g.Inner.CreatePortalSession(ctx, sessionID)
	g.Breaker.Report(ctx, !isProviderOutage(err))
	return ref, err
}

// isProviderOutage reports whether the error indicates the provider itself is
// failing, as opposed to a well-formed rejection of this particular request.
// Client-side rejections (bad price id, unknown session) do not trip the
// breaker.
func isProviderOutage(err error) bool {
	if err == nil {
		return false
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == "PROVIDER_UNAVAILABLE"
	}
	// Transport errors (timeouts, refused connections) count as outages.
	return true
}
