// Package parser provides the parsed view of a fetched HTML page shared by
// link discovery and product extraction. A page is parsed once; the same
// tree backs the goquery selection API, the JSON-LD blocks and the meta tags.
package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// structuredDataType is the script type carrying JSON-LD blocks.
const structuredDataType = "application/ld+json"

// Document is a parsed HTML page
type Document struct {
	baseURL    *url.URL
	root       *html.Node
	structured []map[string]any
	meta       map[string]string

	// Query exposes CSS selectors over the parsed tree
	Query *goquery.Document
}

// Parse parses HTML content relative to pageURL.
// Malformed JSON-LD blocks are skipped; they never fail the parse.
func Parse(pageURL, body string) (*Document, error) {
	baseURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{
		baseURL: baseURL,
		root:    root,
		meta:    make(map[string]string),
		Query:   goquery.NewDocumentFromNode(root),
	}
	doc.traverse(root)

	return doc, nil
}

// BaseURL returns the page URL the document was parsed against
func (d *Document) BaseURL() string {
	return d.baseURL.String()
}

// StructuredData returns the decoded JSON-LD objects in document order.
// Top-level arrays and @graph members are flattened into the result.
func (d *Document) StructuredData() []map[string]any {
	return d.structured
}

// MetaProperty returns the content of <meta property="name">.
// When a property is repeated the last occurrence wins.
func (d *Document) MetaProperty(name string) string {
	return d.meta[name]
}

// Resolve converts href to an absolute URL against the page URL.
// It returns an empty string when href cannot be parsed.
func (d *Document) Resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return d.baseURL.ResolveReference(ref).String()
}

// traverse recursively walks the HTML tree
func (d *Document) traverse(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script:
			d.parseScript(n)
		case atom.Meta:
			d.parseMeta(n)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.traverse(c)
	}
}

// parseScript decodes JSON-LD script blocks
func (d *Document) parseScript(n *html.Node) {
	scriptType := strings.ToLower(strings.TrimSpace(attr(n, "type")))
	if !strings.HasPrefix(scriptType, structuredDataType) {
		return
	}

	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}

	raw := strings.TrimSpace(sb.String())
	if raw == "" {
		return
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return
	}
	d.structured = append(d.structured, flatten(data)...)
}

// parseMeta records <meta property=... content=...> pairs
func (d *Document) parseMeta(n *html.Node) {
	var property, content string
	var hasProperty bool

	for _, a := range n.Attr {
		switch a.Key {
		case "property":
			property = a.Val
			hasProperty = true
		case "content":
			content = a.Val
		}
	}

	if hasProperty {
		d.meta[property] = content
	}
}

// flatten turns a decoded JSON-LD value into a list of objects
func flatten(data any) []map[string]any {
	var result []map[string]any

	switch v := data.(type) {
	case []any:
		for _, item := range v {
			result = append(result, flatten(item)...)
		}
	case map[string]any:
		result = append(result, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				result = append(result, flatten(item)...)
			}
		}
	}

	return result
}

// TypeIs reports whether a JSON-LD object has the given @type.
// Both the string form and the array form of @type are accepted.
func TypeIs(obj map[string]any, typ string) bool {
	switch v := obj["@type"].(type) {
	case string:
		return v == typ
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == typ {
				return true
			}
		}
	}
	return false
}

// StringValue renders a scalar JSON value as trimmed text.
// Objects, arrays, booleans and null yield an empty string.
func StringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// Text returns the text content of the first node in sel.
// Text fragments are trimmed and joined by single spaces; script and
// style contents are ignored.
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}

	var parts []string
	collectText(sel.Get(0), &parts)
	return strings.Join(parts, " ")
}

// collectText gathers trimmed text fragments below n
func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, strings.Join(strings.Fields(text), " "))
		}
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// FindText returns the first text node in document order, head included,
// whose content satisfies match, trimmed. Script and style contents are skipped.
func (d *Document) FindText(match func(string) bool) string {
	var found string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return false
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" && match(text) {
				found = text
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	return found
}

// attr returns the value of the named attribute
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
