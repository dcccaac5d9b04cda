// Package resilience guards calls to remote dependencies with a
// failure-ratio circuit breaker and jittered exponential backoff.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker trips once the observed failure ratio reaches the configured
// threshold over at least minSamples outcomes. While open it rejects
// everything; after the cool-off one probe is admitted and its outcome
// decides between closing again and another open period.
type Breaker struct {
	mu         sync.Mutex
	state      State
	fails      int
	oks        int
	minSamples int
	tripRatio  float64
	coolOff    time.Duration
	openedAt   time.Time
	target     string
	logger     *zerolog.Logger
}

// NewBreaker constructs a closed breaker. Zero or out-of-range arguments
// fall back to one sample, a 0.5 trip ratio and a 30s cool-off.
func NewBreaker(minSamples int, tripRatio float64, coolOff time.Duration) *Breaker {
	if minSamples <= 0 {
		minSamples = 1
	}
	if tripRatio <= 0 || tripRatio > 1 {
		tripRatio = 0.5
	}
	if coolOff <= 0 {
		coolOff = 30 * time.Second
	}
	return &Breaker{
		state:      Closed,
		minSamples: minSamples,
		tripRatio:  tripRatio,
		coolOff:    coolOff,
	}
}

// WithTarget sets the dependency name used in log and metric labels.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.publishStateLocked()
	return b
}

// WithLogger sets the logger used for state-transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

// Allow reports whether a request may proceed. An open breaker admits one
// probe after the cool-off has elapsed, moving to half-open.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) < b.coolOff {
		return false
	}
	b.transitionLocked(ctx, HalfOpen)
	return true
}

// Report records a request outcome and drives the state machine.
func (b *Breaker) Report(ctx context.Context, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if ok {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	if ok {
		b.oks++
	} else {
		b.fails++
	}
	total := b.fails + b.oks
	if total < b.minSamples {
		return
	}
	if float64(b.fails)/float64(total) >= b.tripRatio {
		b.transitionLocked(ctx, Open)
		return
	}
	// Halve the counters periodically so old outcomes age out.
	if total > b.minSamples*2 {
		b.oks = (b.oks + 1) / 2
		b.fails = (b.fails + 1) / 2
	}
}

// Backoff returns the exponential backoff delay for the given attempt,
// widened by up to jitterPct in either direction.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		b.publishStateLocked()
		return
	}
	b.state = next
	if next == Open {
		b.openedAt = time.Now()
	} else {
		b.openedAt = time.Time{}
	}
	b.fails = 0
	b.oks = 0
	b.publishStateLocked()

	label := b.targetLabel()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}

	evt := b.loggerFor(ctx).Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) publishStateLocked() {
	if BreakerState == nil {
		return
	}
	BreakerState.WithLabelValues(b.targetLabel()).Set(float64(b.state))
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if b.logger != nil {
		return b.logger
	}
	// zerolog.Ctx falls back to a disabled logger when none is attached.
	return zerolog.Ctx(ctx)
}
