// Package insights implements the read-only query and aggregation
// functions over a catalog snapshot. Every function is pure: it never
// mutates its input and is safe to call concurrently against the same
// snapshot. All price averages are rounded half-up to two decimal
// places, and only at the final output step.
package insights

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csousa/bookdata-api/models"
)

var (
	// ErrNoSearchCriteria is returned when neither a title nor a
	// category filter was supplied.
	ErrNoSearchCriteria = errors.New("insights: search requires a title or category filter")

	// ErrInvalidPriceRange is returned when min exceeds max.
	ErrInvalidPriceRange = errors.New("insights: minimum price exceeds maximum price")
)

// Search filters books by case-insensitive substring containment on
// title and/or category. At least one filter must be non-empty; when
// both are supplied a book must match both. An empty result is a valid
// outcome, distinct from the missing-criteria error.
func Search(books []models.Book, title, category string) ([]models.Book, error) {
	if title == "" && category == "" {
		return nil, ErrNoSearchCriteria
	}

	title = strings.ToLower(title)
	category = strings.ToLower(category)

	out := []models.Book{}
	for _, b := range books {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(b.Category), category) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// PriceRange returns books with min <= price <= max, inclusive on both
// ends, in snapshot order.
func PriceRange(books []models.Book, min, max decimal.Decimal) ([]models.Book, error) {
	if min.GreaterThan(max) {
		return nil, ErrInvalidPriceRange
	}

	out := []models.Book{}
	for _, b := range books {
		if b.Price.GreaterThanOrEqual(min) && b.Price.LessThanOrEqual(max) {
			out = append(out, b)
		}
	}
	return out, nil
}

// TopRated returns the five-star books in snapshot order. The threshold
// is the top of the source's fixed five-point scale.
func TopRated(books []models.Book) []models.Book {
	out := []models.Book{}
	for _, b := range books {
		if b.Rating == 5 {
			out = append(out, b)
		}
	}
	return out
}

// Overview computes catalog-wide statistics. An empty input yields
// total 0, average 0 and an empty distribution; ratings that never
// occur are omitted from the distribution, not zero-filled.
func Overview(books []models.Book) models.StatsOverview {
	stats := models.StatsOverview{
		TotalBooks:         len(books),
		AveragePrice:       decimal.Zero,
		RatingDistribution: map[int]int{},
	}
	if len(books) == 0 {
		return stats
	}

	sum := decimal.Zero
	for _, b := range books {
		sum = sum.Add(b.Price)
		stats.RatingDistribution[b.Rating]++
	}
	stats.AveragePrice = sum.Div(decimal.NewFromInt(int64(len(books)))).Round(2)
	return stats
}

// ByCategory groups books by exact category string equality and
// computes count and mean price per group, sorted by category name
// ascending.
func ByCategory(books []models.Book) []models.CategoryStat {
	type group struct {
		count int
		sum   decimal.Decimal
	}
	groups := make(map[string]*group)
	for _, b := range books {
		g, ok := groups[b.Category]
		if !ok {
			g = &group{sum: decimal.Zero}
			groups[b.Category] = g
		}
		g.count++
		g.sum = g.sum.Add(b.Price)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.CategoryStat, 0, len(names))
	for _, name := range names {
		g := groups[name]
		out = append(out, models.CategoryStat{
			Category:     name,
			TotalBooks:   g.count,
			AveragePrice: g.sum.Div(decimal.NewFromInt(int64(g.count))).Round(2),
		})
	}
	return out
}
