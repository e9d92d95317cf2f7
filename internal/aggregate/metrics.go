package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deeds_events_applied_total",
		Help: "Deed events aggregated into period totals",
	})

	eventsDedupedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deeds_events_deduped_total",
		Help: "Deed events skipped because their id was already applied",
	})

	clockSkewTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deeds_clock_skew_events_total",
		Help: "Deed events that landed in an already-finalized period",
	})

	recomputeRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deeds_recompute_runs_total",
		Help: "Full period recomputes by outcome",
	}, []string{"outcome"})

	periodsFinalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deeds_periods_finalized_total",
		Help: "Periods finalized at rollover",
	}, []string{"kind"})
)
