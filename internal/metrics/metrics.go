// Package metrics exposes simple Prometheus collectors for the dialing
// engine; both processes serve them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsOriginated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_calls_originated_total",
		Help: "Outbound calls successfully placed at the provider.",
	})

	OriginateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_originate_failures_total",
		Help: "Call placements that failed at the provider and were reverted.",
	})

	CallbacksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_status_callbacks_total",
		Help: "Provider status callbacks processed, by call status.",
	}, []string{"status"})

	CallbacksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_status_callbacks_dropped_total",
		Help: "Callbacks whose completion side effect was dropped for lack of correlation ids.",
	})

	LeaseContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_lease_contention_total",
		Help: "Dial attempts skipped because the campaign lease was held.",
	})

	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_scheduler_ticks_total",
		Help: "Completed scheduler ticks.",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outreach_scheduler_tick_seconds",
		Help:    "Wall time of one scheduler tick.",
		Buckets: prometheus.DefBuckets,
	})

	RetrySweepLeads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_retry_sweep_leads_total",
		Help: "Leads returned to the queue by the retry sweep.",
	})
)
