package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Model metrics
	ResourcesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lcmc_resources_total",
			Help: "Total number of resources by kind and state",
		},
		[]string{"kind", "state"},
	)

	PlaceholdersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lcmc_placeholders_total",
			Help: "Total number of constraint placeholders",
		},
	)

	// Reconciler metrics
	PlaceholderReversals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lcmc_placeholder_reversals_total",
			Help: "Total number of connection data reversals by constraint kind and reason",
		},
		[]string{"kind", "reason"},
	)

	RscSetSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lcmc_rsc_set_submissions_total",
			Help: "Total number of resource set submissions by test mode",
		},
		[]string{"test_only"},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lcmc_reconciliation_duration_seconds",
			Help:    "Time taken to push a status snapshot into placeholders",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lcmc_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
	)

	// Apply metrics
	ApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lcmc_apply_duration_seconds",
			Help:    "Duration of apply operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ValidationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lcmc_validation_failures_total",
			Help: "Total number of parameters that failed validation",
		},
	)

	// CRM command metrics
	CRMCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lcmc_crm_commands_total",
			Help: "Total number of CRM commands by command and result",
		},
		[]string{"command", "result"},
	)

	// Action queue metrics
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lcmc_actions_total",
			Help: "Total number of queued user actions by result",
		},
		[]string{"result"},
	)

	ActionQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lcmc_action_queue_depth",
			Help: "Number of actions waiting in the queue",
		},
	)
)

func init() {
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(PlaceholdersTotal)
	prometheus.MustRegister(PlaceholderReversals)
	prometheus.MustRegister(RscSetSubmissions)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ApplyDuration)
	prometheus.MustRegister(ValidationFailures)
	prometheus.MustRegister(CRMCommandsTotal)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ActionQueueDepth)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
