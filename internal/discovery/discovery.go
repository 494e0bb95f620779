// Package discovery decides whether a page is a single product page or a
// listing, and harvests candidate product URLs from listings.
package discovery

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/masahif/shoptadoru/internal/parser"
)

// listingHintClasses are class fragments of product containers on listings
var listingHintClasses = []string{
	"product",
	"card",
	"item",
	"goods",
	"catalog",
	"grid",
}

// productURLTokens mark URLs that likely point at a product page
var productURLTokens = []string{
	"/product",
	"/item",
	"/goods",
	"/catalog/",
	"sku",
	"id=",
}

// Result is the outcome of link discovery
type Result struct {
	IsProductPage bool     // The page itself describes a single product
	Links         []string // Deduplicated candidate product URLs in page order
}

// Discover inspects a page and returns its product links, capped at max.
func Discover(baseURL, body string, max int) (*Result, error) {
	doc, err := parser.Parse(baseURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", baseURL, err)
	}
	return DiscoverDocument(doc, max), nil
}

// DiscoverDocument runs discovery on an already parsed page
func DiscoverDocument(doc *parser.Document, max int) *Result {
	baseURL := doc.BaseURL()
	result := &Result{}

	// Structured data hints
	structuredLinks := structuredDataLinks(doc)
	if unique := dedupe(structuredLinks); len(unique) == 1 &&
		strings.TrimRight(unique[0], "/") == strings.TrimRight(baseURL, "/") {
		result.IsProductPage = true
	}

	// Anchors inside product-like containers, or all anchors
	candidates := anchorLinks(doc)
	candidates = append(candidates, structuredLinks...)
	links := dedupe(candidates)

	// A page with several candidates is a listing
	if len(links) >= 2 {
		result.IsProductPage = false
	}

	if max <= 0 {
		links = nil
	} else if len(links) > max {
		links = links[:max]
	}
	result.Links = links

	return result
}

// structuredDataLinks collects ItemList element URLs and Product URLs
func structuredDataLinks(doc *parser.Document) []string {
	var links []string

	for _, obj := range doc.StructuredData() {
		if parser.TypeIs(obj, "ItemList") {
			elements, _ := obj["itemListElement"].([]any)
			for _, element := range elements {
				item, ok := element.(map[string]any)
				if !ok {
					continue
				}
				if href := itemListURL(item); href != "" {
					links = append(links, doc.Resolve(href))
				}
			}
		}

		if parser.TypeIs(obj, "Product") {
			href := parser.StringValue(obj["url"])
			if href == "" {
				href = parser.StringValue(obj["@id"])
			}
			if href != "" {
				links = append(links, doc.Resolve(href))
			}
		}
	}

	return links
}

// itemListURL returns a ListItem's url or the @id of its nested item
func itemListURL(element map[string]any) string {
	if href := parser.StringValue(element["url"]); href != "" {
		return href
	}

	switch item := element["item"].(type) {
	case map[string]any:
		return parser.StringValue(item["@id"])
	case string:
		return strings.TrimSpace(item)
	}
	return ""
}

// anchorLinks returns same-domain product-looking links from anchors
func anchorLinks(doc *parser.Document) []string {
	var anchors []*goquery.Selection
	for _, cls := range listingHintClasses {
		selector := fmt.Sprintf("div[class*='%[1]s'], li[class*='%[1]s'], section[class*='%[1]s']", cls)
		doc.Query.Find(selector).Each(func(_ int, container *goquery.Selection) {
			container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				anchors = append(anchors, a)
			})
		})
	}
	if len(anchors) == 0 {
		doc.Query.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			anchors = append(anchors, a)
		})
	}

	baseURL := doc.BaseURL()
	var links []string
	for _, a := range anchors {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}

		absURL := doc.Resolve(href)
		if !isHTTP(absURL) || !sameDomain(baseURL, absURL) {
			continue
		}

		if looksLikeProduct(absURL) {
			links = append(links, absURL)
		}
	}

	return links
}

// sameDomain reports whether candidate is on the base host.
// A candidate without a host counts as same-domain.
func sameDomain(baseURL, candidateURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	candidate, err := url.Parse(candidateURL)
	if err != nil {
		return false
	}
	return base.Host == candidate.Host || candidate.Host == ""
}

func isHTTP(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func looksLikeProduct(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, token := range productURLTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// dedupe removes repeated URLs keeping first-seen order
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	result := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		result = append(result, u)
	}
	return result
}
