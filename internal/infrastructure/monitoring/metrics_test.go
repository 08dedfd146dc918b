package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGatewayMetrics_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg)

	m.RequestsTotal.WithLabelValues("/v1/chat/completions", "success").Inc()
	m.CredentialOutcomes.WithLabelValues("success").Inc()
	m.AllocatorScore.Observe(87.5)
	m.FirstTokenLatency.WithLabelValues("claude-sonnet-4-5").Observe(0.25)
	m.StreamErrors.WithLabelValues("openai").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["relaygate_requests_total"])
	assert.True(t, names["relaygate_credential_outcomes_total"])
	assert.True(t, names["relaygate_allocator_score"])
	assert.True(t, names["relaygate_first_token_latency_seconds"])
	assert.True(t, names["relaygate_stream_errors_total"])
}

func TestGatewayMetrics_RequestsTotalCountsByEndpointAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg)

	m.RequestsTotal.WithLabelValues("/v1/messages", "error").Inc()
	m.RequestsTotal.WithLabelValues("/v1/messages", "error").Inc()

	count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/messages", "error"))
	assert.Equal(t, float64(2), count)
}
