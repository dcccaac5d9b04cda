package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutSessionTotal counts checkout session creation attempts by result.
	CheckoutSessionTotal *prometheus.CounterVec
	// PortalSessionTotal counts billing portal session creation attempts by result.
	PortalSessionTotal *prometheus.CounterVec
	// WebhookEventTotal counts inbound notification processing outcomes.
	// The kind label is the classified event kind, or "unknown" for
	// notifications outside the mapping.
	WebhookEventTotal *prometheus.CounterVec
	// EventLogInsertTotal counts event log append outcomes.
	EventLogInsertTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_session_total",
			Help:      "Count of checkout session creation outcomes.",
		}, []string{"result"})
		PortalSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_session_total",
			Help:      "Count of billing portal session creation outcomes.",
		}, []string{"result"})
		WebhookEventTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_event_total",
			Help:      "Count of processed provider notifications by kind and outcome.",
		}, []string{"kind", "result"})
		EventLogInsertTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_log_insert_total",
			Help:      "Count of event log append outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, CheckoutSessionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutSessionTotal = v
			}
		})
		mustRegisterCollector(reg, PortalSessionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PortalSessionTotal = v
			}
		})
		mustRegisterCollector(reg, WebhookEventTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				WebhookEventTotal = v
			}
		})
		mustRegisterCollector(reg, EventLogInsertTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EventLogInsertTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
}
