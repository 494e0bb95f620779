package scraper

import (
	"context"
	"time"

	"github.com/masahif/shoptadoru/internal/discovery"
	"github.com/masahif/shoptadoru/internal/extractor"
	"github.com/masahif/shoptadoru/internal/fetch"
	"github.com/masahif/shoptadoru/internal/model"
)

// PageFetcher retrieves pages; pause is the pacing delay before the request
type PageFetcher interface {
	Fetch(ctx context.Context, url string, pause time.Duration) (*fetch.Page, error)
}

// ProductExtractor turns a page into a product; nil means no product found
type ProductExtractor interface {
	Extract(pageURL, body string) (*extractor.Match, error)
}

// LinkDiscoverer classifies the seed page and lists candidate product links
type LinkDiscoverer interface {
	Discover(baseURL, body string, max int) (*discovery.Result, error)
}

// DiscoverFunc adapts a function to LinkDiscoverer
type DiscoverFunc func(baseURL, body string, max int) (*discovery.Result, error)

// Discover calls f
func (f DiscoverFunc) Discover(baseURL, body string, max int) (*discovery.Result, error) {
	return f(baseURL, body, max)
}

// TableWriter persists the collected products
type TableWriter interface {
	Write(products []model.Product, outPath, templatePath string) error
}

// Journal records runs for later auditing
type Journal interface {
	StartRun(id, seedURL, outputPath, templatePath string) error
	SaveProduct(runID string, product model.Product, strategy string) error
	SaveFailure(runID, url, errorType, errorMessage string) error
	FinishRun(id, status string, productCount, failureCount int, errorMessage string) error
}

// RobotsPolicy decides whether a product link may be fetched
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, url string) (bool, error)
}

// Reporter receives progress events
type Reporter interface {
	Report(event Event)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(event Event)

// Report calls f
func (f ReporterFunc) Report(event Event) {
	f(event)
}
