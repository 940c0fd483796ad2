// Package metrics holds the Prometheus collectors an insert destination
// reports through, and the thin recorder the destination family calls into.
// Nothing in insertdest or storagemgr imports prometheus directly; they
// depend on the narrow Recorder interface below, so a caller that doesn't
// want metrics can pass NopRecorder and pay nothing for it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the narrow interface insertdest depends on. Collectors is
// the concrete implementation registered with a prometheus.Registerer;
// NopRecorder discards everything.
type Recorder interface {
	ObserveCheckoutLatency(policy string, d time.Duration)
	IncSealedBlocks(policy string)
	SetPoolDepth(policy string, depth int)
}

// Collectors is the set of Prometheus collectors for one insert-destination
// family. It is constructed once per process (or per test) and shared by
// every Destination that wants metrics, distinguishing policies by the
// "policy" label rather than by collector identity.
type Collectors struct {
	CheckoutLatency *prometheus.HistogramVec
	SealedBlocks    *prometheus.CounterVec
	PoolDepth       *prometheus.GaugeVec
}

// NewCollectors builds a Collectors with the given namespace (e.g.
// "insertdest") and registers it with reg. reg may be nil, in which case
// the collectors are created but never registered — useful in tests that
// want to assert on values without a live registry.
func NewCollectors(reg prometheus.Registerer, namespace string) *Collectors {
	c := &Collectors{
		CheckoutLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "insertdest",
			Name:      "checkout_latency_seconds",
			Help:      "Latency of a single block checkout, by policy.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"policy"}),
		SealedBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "insertdest",
			Name:      "sealed_blocks_total",
			Help:      "Blocks sealed and handed to the pipeline notifier, by policy.",
		}, []string{"policy"}),
		PoolDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "insertdest",
			Name:      "pool_depth",
			Help:      "Number of partially filled blocks currently available for reuse, by policy.",
		}, []string{"policy"}),
	}
	if reg != nil {
		reg.MustRegister(c.CheckoutLatency, c.SealedBlocks, c.PoolDepth)
	}
	return c
}

func (c *Collectors) ObserveCheckoutLatency(policy string, d time.Duration) {
	c.CheckoutLatency.WithLabelValues(policy).Observe(d.Seconds())
}

func (c *Collectors) IncSealedBlocks(policy string) {
	c.SealedBlocks.WithLabelValues(policy).Inc()
}

func (c *Collectors) SetPoolDepth(policy string, depth int) {
	c.PoolDepth.WithLabelValues(policy).Set(float64(depth))
}

// NopRecorder discards every observation. The zero value is ready to use.
type NopRecorder struct{}

func (NopRecorder) ObserveCheckoutLatency(string, time.Duration) {}
func (NopRecorder) IncSealedBlocks(string)                       {}
func (NopRecorder) SetPoolDepth(string, int)                     {}
