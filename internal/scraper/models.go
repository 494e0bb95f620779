package scraper

import (
	"time"

	"github.com/masahif/shoptadoru/internal/model"
)

// EventKind identifies a progress event
type EventKind int

// Progress events in the order a run emits them
const (
	StageDiscover    EventKind = iota // Fetching the seed page and collecting links
	FoundProductPage                  // The seed is itself a product page
	FoundLinks                        // The seed is a listing; Found links, Total to process
	Processing                        // About to fetch and extract URL
	Processed                         // Finished URL; OK tells whether a product was found
	StageSave                         // Writing the workbook
	StageDone                         // Workbook written
)

// Event is one progress notification
type Event struct {
	Kind    EventKind
	URL     string
	Current int // 1-based ordinal of the item being processed
	Total   int
	Found   int // Links discovered, for FoundLinks
	OK      bool
}

// Percent returns Current/Total as a rounded percentage
func (e Event) Percent() int {
	if e.Total <= 0 {
		return 0
	}
	return (e.Current*100 + e.Total/2) / e.Total
}

// Remaining returns how many items follow the current one
func (e Event) Remaining() int {
	if e.Total <= e.Current {
		return 0
	}
	return e.Total - e.Current
}

// Failure types recorded in the journal and metrics
const (
	FailureFetch     = "fetch_error"
	FailureExtract   = "extract_error"
	FailureNoProduct = "no_product"
	FailureRobots    = "robots_disallowed"
)

// Summary describes a finished run
type Summary struct {
	RunID      string
	SeedURL    string
	OutputPath string
	Products   []model.Product
	Total      int // Items the run planned to process
	Failures   int // Links that could not be fetched or parsed
	NoProduct  int // Pages fetched without a recognizable product
	Skipped    int // Links disallowed by robots.txt
	Duration   time.Duration
}

// ProductCount returns the number of products written
func (s *Summary) ProductCount() int {
	return len(s.Products)
}
