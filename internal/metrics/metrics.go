// Package metrics counts what a run did and exports it in the Prometheus
// textfile format. A nil *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shoptadoru"

// Page kinds
const (
	KindSeed    = "seed"
	KindProduct = "product"
)

// Collector holds the run's metrics in a private registry
type Collector struct {
	registry          *prometheus.Registry
	pagesFetched      *prometheus.CounterVec
	fetchTTFB         *prometheus.HistogramVec
	fetchRetries      *prometheus.CounterVec
	productsExtracted *prometheus.CounterVec
	linkFailures      *prometheus.CounterVec
	linksDiscovered   prometheus.Gauge
}

// New creates a collector with all metrics registered
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Pages fetched successfully, by kind.",
			},
			[]string{"kind"},
		),
		fetchTTFB: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_ttfb_seconds",
				Help:      "Time to first byte of fetched pages, by kind.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"kind"},
		),
		fetchRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_retries_total",
				Help:      "HTTP retries, by status code or network.",
			},
			[]string{"reason"},
		),
		productsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "products_extracted_total",
				Help:      "Products extracted, by strategy.",
			},
			[]string{"strategy"},
		),
		linkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "link_failures_total",
				Help:      "Product links that failed, by failure type.",
			},
			[]string{"type"},
		),
		linksDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "links_discovered",
				Help:      "Candidate product links found on the seed page.",
			},
		),
	}

	c.registry.MustRegister(
		c.pagesFetched,
		c.fetchTTFB,
		c.fetchRetries,
		c.productsExtracted,
		c.linkFailures,
		c.linksDiscovered,
	)

	return c
}

// PageFetched counts a fetched page of the given kind and records its TTFB
func (c *Collector) PageFetched(kind string, ttfb time.Duration) {
	if c == nil {
		return
	}
	c.pagesFetched.WithLabelValues(kind).Inc()
	c.fetchTTFB.WithLabelValues(kind).Observe(ttfb.Seconds())
}

// ObserveRetry counts an HTTP retry
func (c *Collector) ObserveRetry(reason string) {
	if c == nil {
		return
	}
	c.fetchRetries.WithLabelValues(reason).Inc()
}

// ProductExtracted counts a product by extraction strategy
func (c *Collector) ProductExtracted(strategy string) {
	if c == nil {
		return
	}
	c.productsExtracted.WithLabelValues(strategy).Inc()
}

// LinkFailed counts a failed product link
func (c *Collector) LinkFailed(failureType string) {
	if c == nil {
		return
	}
	c.linkFailures.WithLabelValues(failureType).Inc()
}

// LinksDiscovered records the number of candidate links
func (c *Collector) LinksDiscovered(n int) {
	if c == nil {
		return
	}
	c.linksDiscovered.Set(float64(n))
}

// Registry exposes the underlying registry, e.g. for tests
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// WriteTextfile writes all metrics to path in the node-exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
