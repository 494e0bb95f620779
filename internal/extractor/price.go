package extractor

import (
	"regexp"
	"strings"
)

const nbsp = "\u00a0"

// priceSpanRe matches digits with optional grouping (space, NBSP, dot or
// comma followed by three digits) and an optional two-digit decimal suffix.
// Leftmost-longest matching makes "1234.56" win over its "123" prefix.
var priceSpanRe = func() *regexp.Regexp {
	re := regexp.MustCompile(`(\d{1,3}(?:[\s\x{00a0}.,]\d{3})*|\d+)(?:[.,]\d{2})?`)
	re.Longest()
	return re
}()

// NormalizePrice extracts the first price-like number from text and
// returns it with a dot as the only decimal separator and no grouping.
// It returns an empty string when text holds no number.
func NormalizePrice(text string) string {
	span := locatePriceSpan(text)
	if span == "" {
		return ""
	}
	return disambiguateSeparators(span)
}

// locatePriceSpan returns the first numeric span in text
func locatePriceSpan(text string) string {
	if text == "" {
		return ""
	}
	return priceSpanRe.FindString(strings.ReplaceAll(text, nbsp, " "))
}

// disambiguateSeparators decides which separator is decimal and drops
// grouping separators.
func disambiguateSeparators(span string) string {
	price := strings.ReplaceAll(span, nbsp, "")
	price = strings.Join(strings.Fields(price), "")

	hasComma := strings.Contains(price, ",")
	hasDot := strings.Contains(price, ".")

	switch {
	case hasComma && hasDot:
		// The right-most separator is the decimal one.
		if strings.LastIndex(price, ",") > strings.LastIndex(price, ".") {
			price = strings.ReplaceAll(price, ".", "")
			price = strings.ReplaceAll(price, ",", ".")
		} else {
			price = strings.ReplaceAll(price, ",", "")
		}
	case hasComma && strings.Count(price, ",") == 1:
		price = strings.ReplaceAll(price, ",", ".")
	case strings.Count(price, ".") > 1:
		price = strings.ReplaceAll(price, ".", "")
	}

	return price
}
