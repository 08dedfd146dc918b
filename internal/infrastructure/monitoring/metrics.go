// Package monitoring exposes the gateway's Prometheus metrics. It
// replaces the teacher's hand-rolled atomic-counter Monitor (which
// shipped its own text-format exposition writer specifically "to
// avoid pulling in the full prometheus/client_golang dependency")
// with real collectors, since that dependency is already part of this
// module's stack.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GatewayMetrics are the counters/histograms spec.md §2's observability
// note calls out: per-credential outcome, allocator score distribution,
// and stream first-token latency.
type GatewayMetrics struct {
	RequestsTotal      *prometheus.CounterVec
	CredentialOutcomes *prometheus.CounterVec
	AllocatorScore     prometheus.Histogram
	FirstTokenLatency  *prometheus.HistogramVec
	StreamErrors       *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway's collectors against the
// given registerer (pass prometheus.DefaultRegisterer in production,
// a fresh prometheus.NewRegistry() in tests to avoid duplicate
// registration panics across table-driven runs).
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)
	return &GatewayMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaygate",
			Name:      "requests_total",
			Help:      "Total gateway requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		CredentialOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaygate",
			Name:      "credential_outcomes_total",
			Help:      "Upstream call outcomes recorded against a credential, by success/failure.",
		}, []string{"outcome"}),
		AllocatorScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relaygate",
			Name:      "allocator_score",
			Help:      "Score the token allocator computed for the credential it selected.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		FirstTokenLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relaygate",
			Name:      "first_token_latency_seconds",
			Help:      "Time from Upstream open() to the first decoded event-stream frame.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		StreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaygate",
			Name:      "stream_errors_total",
			Help:      "Streaming engine terminations by error class.",
		}, []string{"reason"}),
	}
}

// Handler serves the registry's metrics in Prometheus text exposition
// format. Mount it at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
