package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsObserveCheckoutLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg, "test")

	c.ObserveCheckoutLatency("block_pool", 50*time.Millisecond)

	m := collectHistogram(t, c.CheckoutLatency.WithLabelValues("block_pool"))
	assert.Equal(t, uint64(1), m.GetSampleCount())
}

func TestCollectorsIncSealedBlocks(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg, "test")

	c.IncSealedBlocks("always_create")
	c.IncSealedBlocks("always_create")

	v := collectCounter(t, c.SealedBlocks.WithLabelValues("always_create"))
	assert.Equal(t, float64(2), v)
}

func TestCollectorsSetPoolDepth(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg, "test")

	c.SetPoolDepth("partition_aware", 7)
	c.SetPoolDepth("partition_aware", 3)

	v := collectGauge(t, c.PoolDepth.WithLabelValues("partition_aware"))
	assert.Equal(t, float64(3), v)
}

func TestNopRecorderIsNoop(t *testing.T) {
	var r Recorder = NopRecorder{}
	r.ObserveCheckoutLatency("x", time.Second)
	r.IncSealedBlocks("x")
	r.SetPoolDepth("x", 9)
}

func collectHistogram(t *testing.T, c prometheus.Observer) *dto.Histogram {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.(prometheus.Metric).Write(m))
	return m.GetHistogram()
}

func collectCounter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func collectGauge(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}
