package extractor

import (
	"strings"

	"github.com/masahif/shoptadoru/internal/model"
	"github.com/masahif/shoptadoru/internal/parser"
)

// OpenGraphStrategy reads og:* and product:* meta properties
type OpenGraphStrategy struct{}

// Name returns the strategy name
func (OpenGraphStrategy) Name() string { return StrategyOpenGraph }

// Extract builds a record from social metadata. The page must carry at
// least a title or an explicit price property.
func (OpenGraphStrategy) Extract(doc *parser.Document) (model.Product, bool) {
	name := strings.TrimSpace(doc.MetaProperty("og:title"))
	price := strings.TrimSpace(doc.MetaProperty("product:price:amount"))
	if price == "" {
		price = strings.TrimSpace(doc.MetaProperty("og:price:amount"))
	}

	if name == "" && price == "" {
		return model.Product{}, false
	}

	if price == "" {
		if content, ok := doc.Query.Find("meta[itemprop='price']").First().Attr("content"); ok {
			price = strings.TrimSpace(content)
		}
	}
	if price == "" {
		el := doc.Query.Find("[class*='price'], [id*='price']").First()
		price = NormalizePrice(parser.Text(el))
	}

	product := model.Product{
		Name:        name,
		Price:       price,
		URL:         doc.BaseURL(),
		Description: strings.TrimSpace(doc.MetaProperty("og:description")),
	}
	if image := strings.TrimSpace(doc.MetaProperty("og:image")); image != "" {
		product.ImageURL = doc.Resolve(image)
	}

	return product, true
}
