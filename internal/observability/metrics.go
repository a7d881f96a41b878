package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "flightq"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "answers_total",
			Help:      "Total number of answered questions by outcome.",
		},
		[]string{"outcome"},
	)
	answerStageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "answer_stage_failures_total",
			Help:      "Total number of pipeline failures by stage.",
		},
		[]string{"stage"},
	)
	completionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of model completion calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	identifierRewritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "identifier_rewrites_total",
			Help:      "Total number of identifiers rewritten by fuzzy repair.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "query_duration_seconds",
			Help:      "Execution latency of generated statements.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
	schemaLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "schema_loads_total",
			Help:      "Total number of warehouse load attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		answersTotal,
		answerStageFailuresTotal,
		completionDurationSeconds,
		identifierRewritesTotal,
		queryDurationSeconds,
		schemaLoadsTotal,
	)
}

func ObserveAnswer(outcome string) {
	answersTotal.WithLabelValues(outcome).Inc()
}

func ObserveStageFailure(stage string) {
	answerStageFailuresTotal.WithLabelValues(stage).Inc()
}

func ObserveCompletion(elapsed time.Duration) {
	completionDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveIdentifierRewrites ignores zero so clean statements do not touch the counter.
func ObserveIdentifierRewrites(count int) {
	if count > 0 {
		identifierRewritesTotal.Add(float64(count))
	}
}

func ObserveQuery(elapsed time.Duration) {
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveSchemaLoad(ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	schemaLoadsTotal.WithLabelValues(result).Inc()
}
