// Package extractor turns a product page into a product record.
//
// Extraction runs a fixed chain of strategies: JSON-LD structured data,
// then OpenGraph meta tags, then DOM heuristics. The first strategy that
// yields a record with a name or a price wins; results are never merged
// across strategies.
package extractor

import (
	"fmt"

	"github.com/masahif/shoptadoru/internal/model"
	"github.com/masahif/shoptadoru/internal/parser"
)

// Strategy names reported in Match.Strategy
const (
	StrategyJSONLD    = "jsonld"
	StrategyOpenGraph = "opengraph"
	StrategyHeuristic = "heuristic"
)

// Strategy attempts to build a product record from a parsed page
type Strategy interface {
	Name() string
	Extract(doc *parser.Document) (model.Product, bool)
}

// Match is a successful extraction
type Match struct {
	Product  model.Product
	Strategy string // Name of the strategy that produced the record
}

// Extractor evaluates strategies in priority order
type Extractor struct {
	strategies []Strategy
}

// New creates an extractor with the default strategy chain
func New() *Extractor {
	return NewWithStrategies(JSONLDStrategy{}, OpenGraphStrategy{}, HeuristicStrategy{})
}

// NewWithStrategies creates an extractor with a custom strategy chain
func NewWithStrategies(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract parses body and runs the strategy chain.
// A nil Match with a nil error means no strategy found a product.
func (e *Extractor) Extract(pageURL, body string) (*Match, error) {
	doc, err := parser.Parse(pageURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}
	return e.ExtractDocument(doc), nil
}

// ExtractDocument runs the strategy chain on an already parsed page
func (e *Extractor) ExtractDocument(doc *parser.Document) *Match {
	for _, strategy := range e.strategies {
		product, ok := strategy.Extract(doc)
		if ok && product.Usable() {
			return &Match{Product: product, Strategy: strategy.Name()}
		}
	}
	return nil
}
