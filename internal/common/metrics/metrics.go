// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunityFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_opportunity_fetches_total",
			Help: "Total number of opportunity list fetches by actor role",
		},
		[]string{"role", "outcome"},
	)

	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_mutations_total",
			Help: "Total number of marketplace mutations by operation",
		},
		[]string{"operation", "outcome"},
	)

	GuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_guard_rejections_total",
			Help: "Total number of guard rejections by error code",
		},
		[]string{"operation", "error_code"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_notifications_sent_total",
			Help: "Total number of best-effort notifications by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "marketplace_fetch_duration_seconds",
			Help: "Duration of backend fetches in seconds",
		},
		[]string{"source"},
	)

	DiscoverySearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_discovery_searches_total",
			Help: "Total number of talent discovery searches",
		},
		[]string{"outcome"},
	)
)
