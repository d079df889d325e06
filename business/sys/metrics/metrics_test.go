package metrics_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/chainsim/business/sys/metrics"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

var _ ledger.Metrics = (*metrics.Metrics)(nil)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	m := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		m[mf.GetName()] = mf
	}

	return m
}

func TestLedgerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.BlockSealed("c1", 42, 10*time.Millisecond)
	m.BlockAppended("c1", 1, 7)
	m.BlockAppended("c1", 2, 5)
	m.StaleSeal("c1")
	m.ObserveRequest("GET", "200", time.Now())

	families := gather(t, reg)

	value := func(name string) float64 {
		mf, exists := families[name]
		require.True(t, exists, name)
		require.Len(t, mf.GetMetric(), 1, name)

		metric := mf.GetMetric()[0]
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			return metric.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			return metric.GetGauge().GetValue()
		default:
			return float64(metric.GetHistogram().GetSampleCount())
		}
	}

	require.Equal(t, 2.0, value("chainsim_ledger_blocks_appended_total"))
	require.Equal(t, 2.0, value("chainsim_ledger_chain_height"))
	require.Equal(t, 12.0, value("chainsim_ledger_value_moved_total"))
	require.Equal(t, 1.0, value("chainsim_ledger_stale_seals_total"))
	require.Equal(t, 1.0, value("chainsim_ledger_seal_attempts"))
	require.Equal(t, 1.0, value("chainsim_http_requests_total"))

	label := families["chainsim_ledger_blocks_appended_total"].GetMetric()[0].GetLabel()[0]
	require.Equal(t, "chain", label.GetName())
	require.Equal(t, "c1", label.GetValue())
}
