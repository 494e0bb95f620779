package discovery

import (
	"fmt"
	"slices"
	"strings"
	"testing"
)

const listingURL = "https://shop.example/catalog"

func TestDiscoverListingContainers(t *testing.T) {
	html := `<html><body>
		<nav><a href="/about">About</a><a href="/product/nav-link">Nav</a></nav>
		<div class="product-card"><a href="/product/1">One</a></div>
		<div class="product-card"><a href="/product/2">Two</a><a href="/product/1">Again</a></div>
		<li class="item"><a href="https://shop.example/item?id=3">Three</a></li>
		<div class="product-card"><a href="https://other.example/product/9">Elsewhere</a></div>
		<div class="product-card"><a href="#reviews">Reviews</a><a href="">Empty</a></div>
		<div class="product-card"><a href="mailto:sku@shop.example">Mail</a></div>
		<div class="product-card"><a href="/contacts">Contacts</a></div>
	</body></html>`

	result, err := Discover(listingURL, html, 50)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if result.IsProductPage {
		t.Error("Expected listing, got product page")
	}
	want := []string{
		"https://shop.example/product/1",
		"https://shop.example/product/2",
		"https://shop.example/item?id=3",
	}
	if !slices.Equal(result.Links, want) {
		t.Errorf("Expected links %v, got %v", want, result.Links)
	}
}

func TestDiscoverFallsBackToAllAnchors(t *testing.T) {
	html := `<html><body>
		<a href="/goods/kettle">Kettle</a>
		<a href="/blog/post">Post</a>
		<a href="/view?sku=42">SKU</a>
	</body></html>`

	result, err := Discover(listingURL, html, 50)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{
		"https://shop.example/goods/kettle",
		"https://shop.example/view?sku=42",
	}
	if !slices.Equal(result.Links, want) {
		t.Errorf("Expected links %v, got %v", want, result.Links)
	}
}

func TestDiscoverRespectsMax(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, `<div class="card"><a href="/product/%d">P%d</a></div>`, i, i)
	}
	b.WriteString("</body></html>")

	tests := []struct {
		name     string
		max      int
		expected int
	}{
		{"below count", 3, 3},
		{"above count", 25, 10},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Discover(listingURL, b.String(), tt.max)
			if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
			if len(result.Links) != tt.expected {
				t.Fatalf("Expected %d links, got %d", tt.expected, len(result.Links))
			}
			if tt.expected > 0 && result.Links[0] != "https://shop.example/product/1" {
				t.Errorf("Expected first link to keep document order, got %s", result.Links[0])
			}
		})
	}
}

func TestDiscoverSingleProductPage(t *testing.T) {
	pageURL := "https://shop.example/product/kettle"
	html := `<html><head>
		<script type="application/ld+json">
		{"@context": "https://schema.org", "@type": "Product", "name": "Kettle", "url": "https://shop.example/product/kettle/"}
		</script>
	</head><body><h1>Kettle</h1><a href="/about">About</a></body></html>`

	result, err := Discover(pageURL, html, 50)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if !result.IsProductPage {
		t.Error("Expected product page")
	}
	want := []string{"https://shop.example/product/kettle/"}
	if !slices.Equal(result.Links, want) {
		t.Errorf("Expected links %v, got %v", want, result.Links)
	}
}

func TestDiscoverProductPageWithRelatedLinks(t *testing.T) {
	pageURL := "https://shop.example/product/kettle"
	html := `<html><head>
		<script type="application/ld+json">
		{"@type": "Product", "name": "Kettle", "url": "/product/kettle"}
		</script>
	</head><body>
		<div class="related-items"><a href="/product/mug">Mug</a></div>
	</body></html>`

	result, err := Discover(pageURL, html, 50)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	// Two candidates mean the page is treated as a listing
	if result.IsProductPage {
		t.Error("Expected listing, got product page")
	}
	want := []string{
		"https://shop.example/product/mug",
		"https://shop.example/product/kettle",
	}
	if !slices.Equal(result.Links, want) {
		t.Errorf("Expected links %v, got %v", want, result.Links)
	}
}

func TestDiscoverItemList(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{
			"@type": "ItemList",
			"itemListElement": [
				{"@type": "ListItem", "position": 1, "url": "/p/a"},
				{"@type": "ListItem", "position": 2, "item": {"@id": "https://shop.example/p/b"}},
				{"@type": "ListItem", "position": 3, "item": "/p/c"},
				{"@type": "ListItem", "position": 4},
				"not an object"
			]
		}
		</script>
	</head><body><p>No anchors here</p></body></html>`

	result, err := Discover(listingURL, html, 50)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if result.IsProductPage {
		t.Error("Expected listing, got product page")
	}
	want := []string{
		"https://shop.example/p/a",
		"https://shop.example/p/b",
		"https://shop.example/p/c",
	}
	if !slices.Equal(result.Links, want) {
		t.Errorf("Expected links %v, got %v", want, result.Links)
	}
}

func TestDiscoverAnchorsBeforeStructuredData(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type": "ItemList", "itemListElement": [{"url": "/product/2"}, {"url": "/product/3"}]}
		</script>
	</head><body>
		<div class="grid"><a href="/product/2">Two</a><a href="/product/1">One</a></div>
	</body></html>`

	result, err := Discover(listingURL, html, 50)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{
		"https://shop.example/product/2",
		"https://shop.example/product/1",
		"https://shop.example/product/3",
	}
	if !slices.Equal(result.Links, want) {
		t.Errorf("Expected links %v, got %v", want, result.Links)
	}
}

func TestDiscoverNoLinks(t *testing.T) {
	result, err := Discover(listingURL, "<html><body><p>Empty shop</p></body></html>", 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if result.IsProductPage {
		t.Error("Expected listing, got product page")
	}
	if len(result.Links) != 0 {
		t.Errorf("Expected no links, got %v", result.Links)
	}
}

func TestDiscoverInvalidBaseURL(t *testing.T) {
	_, err := Discover("://bad", "<html></html>", 10)
	if err == nil {
		t.Error("Expected error for invalid base URL")
	}
}

func TestSameDomain(t *testing.T) {
	tests := []struct {
		base      string
		candidate string
		expected  bool
	}{
		{"https://shop.example/a", "https://shop.example/b", true},
		{"https://shop.example/a", "https://cdn.shop.example/b", false},
		{"https://shop.example/a", "/relative", true},
		{"https://shop.example:8443/a", "https://shop.example/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			if got := sameDomain(tt.base, tt.candidate); got != tt.expected {
				t.Errorf("sameDomain(%q, %q) = %v, want %v", tt.base, tt.candidate, got, tt.expected)
			}
		})
	}
}
