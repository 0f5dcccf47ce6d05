package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.ProviderRequests.WithLabelValues("gfs", "success").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ProviderRequests.WithLabelValues("gfs", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ProviderRequests.WithLabelValues("gfs", "success")))
}

func TestCollectorsRegisterCleanly(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.ForecastsTotal))
	for _, c := range m.collectors()[1:] {
		require.NoError(t, reg.Register(c))
	}

	m.DefaultSamples.Add(3)
	m.ForecastsTotal.WithLabelValues("success").Inc()
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DefaultSamples))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ForecastsTotal))
}
