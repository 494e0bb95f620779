package extractor

import (
	"github.com/masahif/shoptadoru/internal/model"
	"github.com/masahif/shoptadoru/internal/parser"
)

// JSONLDStrategy reads schema.org Product objects from JSON-LD blocks
type JSONLDStrategy struct{}

// Name returns the strategy name
func (JSONLDStrategy) Name() string { return StrategyJSONLD }

// Extract returns the first usable Product object on the page
func (JSONLDStrategy) Extract(doc *parser.Document) (model.Product, bool) {
	for _, obj := range doc.StructuredData() {
		if !parser.TypeIs(obj, "Product") {
			continue
		}

		product := productFromJSONLD(doc, obj)
		if product.Usable() {
			return product, true
		}
	}
	return model.Product{}, false
}

func productFromJSONLD(doc *parser.Document, obj map[string]any) model.Product {
	product := model.Product{
		Name:        parser.StringValue(obj["name"]),
		Description: parser.StringValue(obj["description"]),
		Price:       offerPrice(obj["offers"]),
	}

	if product.Price == "" {
		product.Price = NormalizePrice(parser.StringValue(obj["price"]))
	}

	if image := imageValue(obj["image"]); image != "" {
		product.ImageURL = doc.Resolve(image)
	}

	productURL := parser.StringValue(obj["url"])
	if productURL == "" {
		productURL = parser.StringValue(obj["@id"])
	}
	if productURL == "" {
		productURL = doc.BaseURL()
	}
	product.URL = doc.Resolve(productURL)

	return product
}

// offerPrice returns price, lowPrice or highPrice of an Offer or
// AggregateOffer. When offers is a list its first object is used.
func offerPrice(offers any) string {
	if list, ok := offers.([]any); ok {
		if len(list) == 0 {
			return ""
		}
		offers = list[0]
	}

	offer, ok := offers.(map[string]any)
	if !ok {
		return ""
	}

	for _, key := range []string{"price", "lowPrice", "highPrice"} {
		if price := parser.StringValue(offer[key]); price != "" && price != "0" {
			return price
		}
	}
	return ""
}

// imageValue accepts a URL string, a list of URLs or an ImageObject
func imageValue(image any) string {
	switch v := image.(type) {
	case []any:
		if len(v) == 0 {
			return ""
		}
		return imageValue(v[0])
	case map[string]any:
		return parser.StringValue(v["url"])
	default:
		return parser.StringValue(v)
	}
}
