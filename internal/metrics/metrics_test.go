package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequestsTotalIncrements(t *testing.T) {
	r := New()
	r.HTTPRequestsTotal.WithLabelValues("GET", "/health").Inc()
	r.HTTPRequestsTotal.WithLabelValues("GET", "/health").Inc()

	require.InDelta(t, 2, testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("GET", "/health")), 0)
}

func TestBridgeStateGaugeSettable(t *testing.T) {
	r := New()
	r.BridgeState.WithLabelValues("browser", "ready").Set(1)
	require.InDelta(t, 1, testutil.ToFloat64(r.BridgeState.WithLabelValues("browser", "ready")), 0)
}

func TestGathererReturnsOnlyRegisteredSeries(t *testing.T) {
	r := New()
	r.CacheHitsTotal.WithLabelValues("prompts").Inc()

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, mf := range families {
		require.True(t, strings.HasPrefix(mf.GetName(), "easy_mcp_server_"), mf.GetName())
	}
}
