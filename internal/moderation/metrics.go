package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var warningsAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warnbot_warnings_added_total",
	Help: "Number of warnings recorded",
})

var warningsCleared = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warnbot_warnings_cleared_total",
	Help: "Number of warnings removed by moderators",
})

var warningsPruned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warnbot_warnings_pruned_total",
	Help: "Number of warnings removed by the retention sweeper",
})

var sweepFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warnbot_sweep_failures_total",
	Help: "Retention sweeps that ended with at least one error",
})

var escalations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warnbot_escalations_total",
	Help: "Ban confirmation rituals by outcome",
}, []string{"outcome"})

var openRituals = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warnbot_open_rituals",
	Help: "Ban confirmation rituals currently waiting for a moderator",
})

var storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warnbot_store_errors_total",
	Help: "Persistence failures by operation",
}, []string{"op"})
