package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// upstreamFailures counts remote calls that failed but were masked as
// empty results for dashboard availability. Without this counter an
// empty panel is indistinguishable from a broken integration.
var upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "deadmandash_upstream_failures_total",
	Help: "Upstream calls that failed and were served as empty results.",
}, []string{"source"})

func UpstreamFailure(source string) {
	upstreamFailures.WithLabelValues(source).Inc()
}
