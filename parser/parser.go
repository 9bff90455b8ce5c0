// Package parser extracts a best-effort price and representative image URL
// from raw page text. Nothing here fails: a miss is reported as ok == false.
package parser

import (
	"regexp"
	"strings"
)

// pricePatterns are evaluated in priority order; the first pattern with any
// match wins, and within it the earliest match in the text.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\d[\d,]*(?:\.\d+)?`),
	regexp.MustCompile(`(?i)\bUSD?\s*\d[\d,]*(?:\.\d+)?`),
	regexp.MustCompile(`£\d[\d,]*(?:\.\d+)?`),
	regexp.MustCompile(`€\d[\d,]*(?:\.\d+)?`),
}

// ExtractPrice returns the first currency amount found in text.
func ExtractPrice(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, pattern := range pricePatterns {
		if match := pattern.FindString(text); match != "" {
			return strings.TrimSpace(match), true
		}
	}
	return "", false
}

// NormalizePrice strips currency markers and thousands separators, leaving
// the numeric part of an extracted price.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	upper := strings.ToUpper(price)
	switch {
	case strings.HasPrefix(upper, "USD"):
		price = price[3:]
	case strings.HasPrefix(upper, "US"):
		price = price[2:]
	}
	price = strings.NewReplacer("$", "", "£", "", "€", "", "Â", "", ",", "").Replace(price)
	return strings.TrimSpace(price)
}

// Currency returns the ISO code implied by an extracted price.
func Currency(price string) string {
	price = strings.TrimSpace(price)
	switch {
	case strings.HasPrefix(price, "$"), strings.HasPrefix(strings.ToUpper(price), "US"):
		return "USD"
	case strings.HasPrefix(price, "£"):
		return "GBP"
	case strings.HasPrefix(price, "€"):
		return "EUR"
	default:
		return ""
	}
}
