package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAssistantMetrics(reg)

	m.ObserveInbound("telegram")
	m.ObserveInbound("telegram")
	m.ObserveDuplicate("whatsapp")
	m.ObserveReply("telegram", "flow")
	m.ObserveBooking("confirm")
	m.ObserveTurnLatency("telegram", 0.05)
	m.ObserveLeadTier("hot")

	families, err := reg.Gather()
	require.NoError(t, err)

	inbound := findMetric(t, families, "consigliere_assistant_inbound_messages_total")
	assert.Equal(t, float64(2), inbound.GetCounter().GetValue())
}

func TestAssistantMetricsNilSafe(t *testing.T) {
	var m *AssistantMetrics
	m.ObserveInbound("telegram")
	m.ObserveDuplicate("telegram")
	m.ObserveReply("telegram", "generator")
	m.ObserveBooking("cancel")
	m.ObserveTurnLatency("telegram", 0.1)
	m.ObserveLeadTier("cold")
}

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.Metric {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.Metric)
			return mf.Metric[0]
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}
