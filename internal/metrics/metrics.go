package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hotelbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Availability checks by result (available, conflict, fail_open).",
		},
		[]string{"result"},
	)

	recommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation responses by authoritative source.",
		},
		[]string{"source"},
	)

	recommendationSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_steps_total",
			Help:      "Fallback chain steps by state and outcome.",
		},
		[]string{"state", "outcome"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_cache_lookups_total",
			Help:      "Recommendation cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	interactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Interactions by outcome (stored, dropped, failed).",
		},
		[]string{"outcome"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"name"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			grpcRequests,
			availabilityChecks,
			recommendations,
			recommendationSteps,
			cacheLookups,
			interactions,
			breakerState,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

func IncAvailability(result string) {
	availabilityChecks.WithLabelValues(result).Inc()
}

func IncRecommendation(source string) {
	recommendations.WithLabelValues(source).Inc()
}

func IncRecommendationStep(state, outcome string) {
	recommendationSteps.WithLabelValues(state, outcome).Inc()
}

// IncCache records a cache lookup; hit selects the label.
func IncCache(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func IncInteraction(outcome string) {
	interactions.WithLabelValues(outcome).Inc()
}

// SetBreakerState stores the numeric breaker state for name.
func SetBreakerState(name string, state float64) {
	breakerState.WithLabelValues(name).Set(state)
}
