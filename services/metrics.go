package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worthwatch_reviews_generated_total",
		Help: "Reviews generated, labeled by verdict.",
	}, []string{"verdict"})

	searchBranchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worthwatch_search_branch_failures_total",
		Help: "Failed search fan-out branches, labeled by provider.",
	}, []string{"provider"})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worthwatch_fetch_failures_total",
		Help: "Content fetches that yielded no usable text, labeled by kind.",
	}, []string{"kind"})

	llmFailovers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worthwatch_llm_failovers_total",
		Help: "Generative provider failures that triggered the next fallback stage.",
	}, []string{"stage"})

	sweepRegenerations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worthwatch_sweep_regenerations_total",
		Help: "Stale reviews re-entered into the pipeline by the freshness sweep.",
	})
)
