package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/masahif/shoptadoru/internal/model"
	"github.com/masahif/shoptadoru/internal/parser"
)

// Selector chains, most specific first
var (
	nameSelectors = []string{
		"h1",
		"h1[class*='product'], h1[class*='title']",
		".product-title, .item-title, [itemprop='name']",
	}
	priceSelectors = []string{
		"[itemprop='price']",
		".price, .product-price, .card-price, .price__current, [class*='price']",
	}
	imageSelectors = []string{
		"[itemprop='image']",
		"img.product, img[class*='product'], img[class*='main']",
		"img",
	}
	descriptionSelectors = []string{
		"[itemprop='description'], .product-description, .description",
	}
)

// HeuristicStrategy guesses product fields from common markup patterns
type HeuristicStrategy struct{}

// Name returns the strategy name
func (HeuristicStrategy) Name() string { return StrategyHeuristic }

// Extract builds a record from headings, price-like elements and images.
func (HeuristicStrategy) Extract(doc *parser.Document) (model.Product, bool) {
	product := model.Product{
		Name:        firstText(doc, nameSelectors),
		Price:       heuristicPrice(doc),
		URL:         doc.BaseURL(),
		Description: firstText(doc, descriptionSelectors),
	}

	if src := heuristicImage(doc); src != "" {
		product.ImageURL = doc.Resolve(src)
	}

	return product, product.Usable()
}

func heuristicPrice(doc *parser.Document) string {
	for _, selector := range priceSelectors {
		if text := contentOrText(doc.Query.Find(selector).First()); text != "" {
			if price := NormalizePrice(text); price != "" {
				return price
			}
		}
	}

	return NormalizePrice(doc.FindText(priceSpanRe.MatchString))
}

func heuristicImage(doc *parser.Document) string {
	for _, selector := range imageSelectors {
		el := doc.Query.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		for _, key := range []string{"src", "content", "href"} {
			if v, ok := el.Attr(key); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// firstText returns the text of the first non-empty match in the chain
func firstText(doc *parser.Document, selectors []string) string {
	for _, selector := range selectors {
		var text string
		doc.Query.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text = contentOrText(sel)
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// contentOrText prefers a microdata content attribute over element text
func contentOrText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	return parser.Text(sel)
}
