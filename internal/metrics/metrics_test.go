package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncGRPC("/svc/Method", "OK")
		IncRecommendationStep("popularity", "success")
		SetBreakerState("ml", 2)
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(availabilityChecks.WithLabelValues("fail_open"))
	IncAvailability("fail_open")
	assert.Equal(t, before+1, testutil.ToFloat64(availabilityChecks.WithLabelValues("fail_open")))

	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))
	IncCache(true)
	IncCache(false)
	IncCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))

	dropped := testutil.ToFloat64(interactions.WithLabelValues("dropped"))
	IncInteraction("dropped")
	assert.Equal(t, dropped+1, testutil.ToFloat64(interactions.WithLabelValues("dropped")))

	recs := testutil.ToFloat64(recommendations.WithLabelValues("heuristic"))
	IncRecommendation("heuristic")
	assert.Equal(t, recs+1, testutil.ToFloat64(recommendations.WithLabelValues("heuristic")))
}
