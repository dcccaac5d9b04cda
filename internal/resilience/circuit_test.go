package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/resilience"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond)

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should reject once the failure ratio trips")

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "cool-off elapsed, probe should be admitted")
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx), "successful probe should close the breaker")
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.NewBreaker(4, 0.5, time.Minute)

	for i := 0; i < 3; i++ {
		breaker.Report(ctx, true)
	}
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx), "one failure out of four should not trip")
}

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond

	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, 2*base, resilience.Backoff(base, 2, 0))
	require.Equal(t, 4*base, resilience.Backoff(base, 3, 0))
}

func TestBackoffJitterBounds(t *testing.T) {
	base := 100 * time.Millisecond
	expected := 2 * base

	for i := 0; i < 20; i++ {
		d := resilience.Backoff(base, 2, 0.2)
		require.GreaterOrEqual(t, d, expected-expected/5)
		require.LessOrEqual(t, d, expected+expected/5)
	}
}
