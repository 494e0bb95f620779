// Package scraper runs the two-phase scrape: discover product links on the
// seed page, then harvest products from them and save the workbook.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/masahif/shoptadoru/internal/discovery"
	"github.com/masahif/shoptadoru/internal/extractor"
	"github.com/masahif/shoptadoru/internal/metrics"
	"github.com/masahif/shoptadoru/internal/storage"
)

// Options controls a run
type Options struct {
	Limit        int           // Maximum number of products, also the link cap
	Delay        time.Duration // Pause before each product request
	OutputPath   string
	TemplatePath string
}

// Scraper wires the fetcher, discoverer, extractor and writer together
type Scraper struct {
	opts       Options
	fetcher    PageFetcher
	discoverer LinkDiscoverer
	extractor  ProductExtractor
	writer     TableWriter

	journal  Journal
	robots   RobotsPolicy
	reporter Reporter
	metrics  *metrics.Collector
	newRunID func() string
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithJournal records runs, products and failures in j
func WithJournal(j Journal) Option {
	return func(s *Scraper) { s.journal = j }
}

// WithRobots skips product links the policy disallows
func WithRobots(r RobotsPolicy) Option {
	return func(s *Scraper) { s.robots = r }
}

// WithReporter sends progress events to r
func WithReporter(r Reporter) Option {
	return func(s *Scraper) { s.reporter = r }
}

// WithMetrics counts fetches, products and failures in c
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Scraper) { s.metrics = c }
}

// WithDiscoverer replaces the default link discoverer
func WithDiscoverer(d LinkDiscoverer) Option {
	return func(s *Scraper) { s.discoverer = d }
}

// WithExtractor replaces the default product extractor
func WithExtractor(e ProductExtractor) Option {
	return func(s *Scraper) { s.extractor = e }
}

// New creates a scraper. The fetcher and writer are required.
func New(opts Options, fetcher PageFetcher, writer TableWriter, options ...Option) (*Scraper, error) {
	if fetcher == nil || writer == nil {
		return nil, errors.New("fetcher and writer are required")
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0, got %d", opts.Limit)
	}

	s := &Scraper{
		opts:       opts,
		fetcher:    fetcher,
		writer:     writer,
		discoverer: DiscoverFunc(discovery.Discover),
		extractor:  extractor.New(),
		reporter:   ReporterFunc(func(Event) {}),
		newRunID:   uuid.NewString,
	}
	for _, option := range options {
		option(s)
	}

	return s, nil
}

// Run scrapes seedURL and writes the products. When ctx is cancelled the run
// stops at once, nothing is written and ctx.Err() is returned.
func (s *Scraper) Run(ctx context.Context, seedURL string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:      s.newRunID(),
		SeedURL:    seedURL,
		OutputPath: s.opts.OutputPath,
	}
	logger := slog.With("run_id", summary.RunID)

	s.journalStart(logger, summary)
	logger.Info("Starting scrape", "url", seedURL, "limit", s.opts.Limit)

	err := s.harvest(ctx, logger, seedURL, summary)
	if err == nil {
		// An interrupt between fetches still discards the partial result
		err = ctx.Err()
	}
	if err == nil {
		s.reporter.Report(Event{Kind: StageSave})
		if err = s.writer.Write(summary.Products, s.opts.OutputPath, s.opts.TemplatePath); err != nil {
			err = fmt.Errorf("failed to save products: %w", err)
		}
	}

	summary.Duration = time.Since(start)
	s.journalFinish(logger, summary, err)

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			logger.Info("Scrape cancelled", "products", summary.ProductCount())
		}
		return nil, err
	}

	s.reporter.Report(Event{Kind: StageDone})
	logger.Info("Scrape completed",
		"products", summary.ProductCount(),
		"failures", summary.Failures,
		"duration", summary.Duration,
	)

	return summary, nil
}

// harvest fills summary.Products from the seed page or its product links
func (s *Scraper) harvest(ctx context.Context, logger *slog.Logger, seedURL string, summary *Summary) error {
	s.reporter.Report(Event{Kind: StageDiscover})

	seed, err := s.fetcher.Fetch(ctx, seedURL, 0)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to fetch %s: %w", seedURL, err)
	}
	s.metrics.PageFetched(metrics.KindSeed, seed.TTFB)

	result, err := s.discoverer.Discover(seed.FinalURL, seed.Body, s.opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to discover links on %s: %w", seed.FinalURL, err)
	}
	s.metrics.LinksDiscovered(len(result.Links))
	logger.Debug("Discovered links", "count", len(result.Links), "product_page", result.IsProductPage)

	if result.IsProductPage || len(result.Links) == 0 {
		return s.harvestSinglePage(logger, seed.FinalURL, seed.Body, summary)
	}

	return s.harvestLinks(ctx, logger, result.Links, summary)
}

// harvestSinglePage extracts one product from the already fetched seed
func (s *Scraper) harvestSinglePage(logger *slog.Logger, pageURL, body string, summary *Summary) error {
	summary.Total = 1
	s.reporter.Report(Event{Kind: FoundProductPage, Total: 1})
	s.reporter.Report(Event{Kind: Processing, URL: pageURL, Current: 1, Total: 1})

	match, err := s.extractor.Extract(pageURL, body)
	if err != nil {
		return fmt.Errorf("failed to extract product from %s: %w", pageURL, err)
	}

	ok := s.collect(logger, pageURL, match, summary)
	s.reporter.Report(Event{Kind: Processed, URL: pageURL, Current: 1, Total: 1, OK: ok})
	return nil
}

// harvestLinks visits product links in order until the total or the limit
// is reached. Failed links are logged and do not advance the ordinal.
func (s *Scraper) harvestLinks(ctx context.Context, logger *slog.Logger, links []string, summary *Summary) error {
	total := min(s.opts.Limit, len(links))
	summary.Total = total
	s.reporter.Report(Event{Kind: FoundLinks, Found: len(links), Total: total})

	seen := make(map[string]bool, len(links))
	processed := 0

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[link] {
			continue
		}
		seen[link] = true

		current := processed + 1
		if current > total {
			break
		}

		if s.robots != nil {
			allowed, err := s.robots.IsAllowed(ctx, link)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("robots.txt check failed", "url", link, "error", err)
			}
			if !allowed {
				logger.Warn("URL disallowed by robots.txt", "url", link)
				summary.Skipped++
				s.recordFailure(logger, summary.RunID, link, FailureRobots, "disallowed by robots.txt")
				continue
			}
		}

		s.reporter.Report(Event{Kind: Processing, URL: link, Current: current, Total: total})

		page, err := s.fetcher.Fetch(ctx, link, s.opts.Delay)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn("Failed to fetch product page", "url", link, "error", err)
			summary.Failures++
			s.recordFailure(logger, summary.RunID, link, FailureFetch, err.Error())
			continue
		}
		s.metrics.PageFetched(metrics.KindProduct, page.TTFB)
		logger.Debug("Fetched product page", "url", page.FinalURL, "status", page.StatusCode, "attempts", page.Attempts, "ttfb", page.TTFB, "elapsed", page.Elapsed)

		match, err := s.extractor.Extract(page.FinalURL, page.Body)
		if err != nil {
			logger.Warn("Failed to extract product", "url", link, "error", err)
			summary.Failures++
			s.recordFailure(logger, summary.RunID, link, FailureExtract, err.Error())
			continue
		}

		ok := s.collect(logger, link, match, summary)
		s.reporter.Report(Event{Kind: Processed, URL: link, Current: current, Total: total, OK: ok})
		processed++

		if len(summary.Products) >= s.opts.Limit {
			break
		}
	}

	return nil
}

// collect appends a matched product and records it; it reports whether
// there was a product at all.
func (s *Scraper) collect(logger *slog.Logger, pageURL string, match *extractor.Match, summary *Summary) bool {
	if match == nil {
		logger.Info("No product found", "url", pageURL)
		summary.NoProduct++
		s.recordFailure(logger, summary.RunID, pageURL, FailureNoProduct, "")
		return false
	}

	summary.Products = append(summary.Products, match.Product)
	s.metrics.ProductExtracted(match.Strategy)
	logger.Debug("Extracted product", "url", pageURL, "strategy", match.Strategy, "name", match.Product.Name)

	if s.journal != nil {
		if err := s.journal.SaveProduct(summary.RunID, match.Product, match.Strategy); err != nil {
			logger.Error("Failed to journal product", "url", pageURL, "error", err)
		}
	}
	return true
}

// recordFailure counts a link failure in metrics and the journal
func (s *Scraper) recordFailure(logger *slog.Logger, runID, url, failureType, message string) {
	s.metrics.LinkFailed(failureType)
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveFailure(runID, url, failureType, message); err != nil {
		logger.Error("Failed to journal link failure", "url", url, "error", err)
	}
}

func (s *Scraper) journalStart(logger *slog.Logger, summary *Summary) {
	if s.journal == nil {
		return
	}
	if err := s.journal.StartRun(summary.RunID, summary.SeedURL, s.opts.OutputPath, s.opts.TemplatePath); err != nil {
		logger.Error("Failed to journal run start", "error", err)
	}
}

func (s *Scraper) journalFinish(logger *slog.Logger, summary *Summary, runErr error) {
	if s.journal == nil {
		return
	}

	status := storage.StatusCompleted
	message := ""
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = storage.StatusInterrupted
		message = runErr.Error()
	case runErr != nil:
		status = storage.StatusFailed
		message = runErr.Error()
	}

	failures := summary.Failures + summary.Skipped + summary.NoProduct
	if err := s.journal.FinishRun(summary.RunID, status, summary.ProductCount(), failures, message); err != nil {
		logger.Error("Failed to journal run finish", "error", err)
	}
}
