package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	c := New()

	c.PageFetched(KindSeed, 120*time.Millisecond)
	c.PageFetched(KindProduct, 80*time.Millisecond)
	c.PageFetched(KindProduct, 90*time.Millisecond)
	c.ObserveRetry("503")
	c.ProductExtracted("jsonld")
	c.LinkFailed("fetch_error")
	c.LinksDiscovered(7)

	tests := []struct {
		name      string
		collector prometheus.Collector
		expected  float64
	}{
		{"seed pages", c.pagesFetched.WithLabelValues(KindSeed), 1},
		{"product pages", c.pagesFetched.WithLabelValues(KindProduct), 2},
		{"retries", c.fetchRetries.WithLabelValues("503"), 1},
		{"products", c.productsExtracted.WithLabelValues("jsonld"), 1},
		{"failures", c.linkFailures.WithLabelValues("fetch_error"), 1},
		{"links", c.linksDiscovered, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.collector); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	if got := testutil.CollectAndCount(c.fetchTTFB); got != 2 {
		t.Errorf("Expected TTFB series for 2 kinds, got %d", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	c.PageFetched(KindSeed, time.Second)
	c.ObserveRetry("network")
	c.ProductExtracted("heuristic")
	c.LinkFailed("no_product")
	c.LinksDiscovered(3)

	if c.Registry() != nil {
		t.Error("Expected nil registry for nil collector")
	}
	if err := c.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.ProductExtracted("opengraph")
	c.LinksDiscovered(2)

	path := filepath.Join(t.TempDir(), "shoptadoru.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read metrics file: %v", err)
	}
	text := string(data)

	for _, want := range []string{
		`shoptadoru_products_extracted_total{strategy="opengraph"} 1`,
		"shoptadoru_links_discovered 2",
		"# HELP shoptadoru_links_discovered",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected metrics file to contain %q", want)
		}
	}
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	if err := New().WriteTextfile(""); err != nil {
		t.Errorf("Expected no error for empty path, got %v", err)
	}
}

func TestWriteTextfileBadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "m.prom")
	if err := New().WriteTextfile(path); err == nil {
		t.Error("Expected error for missing directory")
	}
}
