package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "supaguard"

// Collector is a prometheus.Collector that also implements core.Observer, so it can be
// passed to both the resolver and the verifier.
type Collector struct {
	verifications  *prometheus.CounterVec
	verifyDuration prometheus.Histogram
	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	keys           prometheus.Gauge
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "token_verifications_total",
				Help:      "Token verifications by outcome kind.",
			}, []string{"kind"},
		),
		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "token_verification_seconds",
				Help:      "Time spent verifying a token, including any key-set fetch.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "jwks_fetches_total",
				Help:      "Key-set fetch attempts by source and result.",
			}, []string{"source", "result"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "jwks_fetch_seconds",
				Help:      "Time taken to obtain the key-set.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			}, []string{"source"},
		),
		keys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "jwks_keys",
				Help:      "Number of keys in the most recently fetched key-set.",
			},
		),
	}
}

// KeySetFetched is part of the core.Observer interface.
func (c *Collector) KeySetFetched(source string, keys int, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		c.keys.Set(float64(keys))
	}
	c.fetches.WithLabelValues(source, result).Inc()
	c.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// TokenVerified is part of the core.Observer interface.
func (c *Collector) TokenVerified(kind string, elapsed time.Duration) {
	c.verifications.WithLabelValues(kind).Inc()
	c.verifyDuration.Observe(elapsed.Seconds())
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.verifications.Describe(ch)
	c.verifyDuration.Describe(ch)
	c.fetches.Describe(ch)
	c.fetchDuration.Describe(ch)
	c.keys.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.verifications.Collect(ch)
	c.verifyDuration.Collect(ch)
	c.fetches.Collect(ch)
	c.fetchDuration.Collect(ch)
	c.keys.Collect(ch)
}
