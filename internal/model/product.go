// Package model defines the product record shared by the extractor, the
// orchestrator and the table writer.
package model

// Product is a single extracted product. Optional fields are empty when the
// page did not provide them.
type Product struct {
	Name        string // Product name
	Price       string // Normalized numeric text, e.g. "1234.56"
	URL         string // Canonical product URL
	ImageURL    string // Absolute image URL
	Description string // Free-form description
}

// Usable reports whether the record carries enough data to be kept.
func (p Product) Usable() bool {
	return p.Name != "" || p.Price != ""
}

// Row returns the column values in spreadsheet header order:
// name, price, URL, image URL, description.
func (p Product) Row() []string {
	return []string{p.Name, p.Price, p.URL, p.ImageURL, p.Description}
}
