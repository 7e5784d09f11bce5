// Package parser normalizes raw scraped fields into typed values.
package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csousa/bookdata-api/models"
)

// ValidateScraped ensures the scraper captured the required fields.
func ValidateScraped(b *models.ScrapedBook) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.Price) == "" {
		return fmt.Errorf("book missing price for %s", b.Title)
	}
	if strings.TrimSpace(b.Rating) == "" {
		return fmt.Errorf("book missing rating for %s", b.Title)
	}
	if strings.TrimSpace(b.BookURL) == "" {
		return fmt.Errorf("book missing url for %s", b.Title)
	}
	return nil
}

// NormalizePrice removes leading currency symbols and surrounding
// whitespace. "Â£" is the UTF-8 pound sign read back as latin-1, which
// the source site produces depending on the transport.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	for _, symbol := range []string{"Â£", "£", "$", "€"} {
		price = strings.ReplaceAll(price, symbol, "")
	}
	return strings.TrimSpace(price)
}

// ParsePrice normalizes and parses a raw price into a decimal amount.
// Malformed input yields zero rather than an error so that a single bad
// row never aborts a catalog load.
func ParsePrice(price string) decimal.Decimal {
	d, err := decimal.NewFromString(NormalizePrice(price))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeAvailability trims spacing from the availability text.
func NormalizeAvailability(text string) string {
	return strings.TrimSpace(text)
}

// RatingToNumeric converts the textual star rating to its numeric
// equivalent. Anything outside the fixed word table maps to 0, the
// out-of-range sentinel.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}
