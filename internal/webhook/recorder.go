package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/backend-billing/internal/eventlog"
)

// Recorder appends classified domain events to the event log.
type Recorder struct {
	Store eventlog.Store
}

// Record persists one event as an append-only log row. The store owns
// connection scoping; a failure here is reported to the caller and must not
// escalate beyond it, because webhook handling stays available even when
// the store is degraded.
func (r Recorder) Record(ctx context.Context, event DomainEvent) (eventlog.Record, error) {
	if r.Store == nil {
		return eventlog.Record{}, errors.New("webhook: recorder store not configured")
	}
	rec, err := r.Store.Insert(ctx, event.Kind.Label())
	if err != nil {
		return eventlog.Record{}, fmt.Errorf("webhook: record %s: %w", event.Kind, err)
	}
	return rec, nil
}
