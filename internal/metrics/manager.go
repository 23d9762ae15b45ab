package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "swole"
	subsystem = "engine"
)

// Manager holds the collectors updated by the analytics engine and the HTTP layer.
type Manager struct {
	// counters
	CounterRequests        *prometheus.CounterVec
	CounterReadinessScores prometheus.Counter
	CounterSuggestions     *prometheus.CounterVec
	CounterForecasts       *prometheus.CounterVec
	CounterAchievements    *prometheus.CounterVec
	CounterRequestPanics   prometheus.Counter

	// histograms
	HistRequestDuration    prometheus.Histogram
	HistEvaluationDuration prometheus.Histogram
	HistReadiness          prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager(namespace, "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(namespace, "test_server", reg), reg
}

// NewDefaultManager registers the collectors under the production namespace.
func NewDefaultManager(reg prometheus.Registerer) *Manager {
	return NewManager(namespace, subsystem, reg)
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterReadinessScores: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "readiness_scores",
			Help:      "The total number of computed readiness scores",
		}),
		CounterSuggestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "progression_suggestions",
			Help:      "The total number of emitted progression suggestions",
		}, []string{"type", "plateau"}),
		CounterForecasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pr_forecasts",
			Help:      "The total number of PR forecast computations by outcome",
		}, []string{"outcome"}),
		CounterAchievements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "milestone_achievements",
			Help:      "The total number of recorded milestone achievements",
		}, []string{"milestone_type"}),
		CounterRequestPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_request_panic",
			Help:      "The total number of serve request panics",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
		}),
		HistEvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			Name:      "milestone_evaluation_duration_seconds",
			Help:      "Duration of a single milestone batch evaluation in seconds",
		}),
		HistReadiness: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10), //nolint:mnd // deciles of rho.
			Name:      "readiness_rho",
			Help:      "Distribution of computed readiness scores",
		}),
	}
}

// SetupPrometheus returns a registry with Go build info, runtime and process collectors registered.
func SetupPrometheus() *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()

	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return promRegistry
}
