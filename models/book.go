// Package models defines the data structures shared by the scraper,
// the catalog and the API.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is one normalized catalog entry. IDs are assigned by the catalog
// loader in source row order and are dense within a snapshot.
type Book struct {
	ID           int             `json:"id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Rating       int             `json:"rating"`
	Availability string          `json:"availability"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url"`
	BookURL      string          `json:"book_url"`
}

// ScrapedBook is a raw record as extracted from a book detail page,
// before any normalization. Price keeps its currency symbol and Rating
// is the textual star rating ("One".."Five").
type ScrapedBook struct {
	Title        string    `csv:"title" json:"title"`
	Price        string    `csv:"price" json:"price"`
	Rating       string    `csv:"rating" json:"rating"`
	Availability string    `csv:"availability" json:"availability"`
	Category     string    `csv:"category" json:"category"`
	ImageURL     string    `csv:"image_url" json:"image_url"`
	BookURL      string    `csv:"book_url" json:"book_url"`
	ScrapedAt    time.Time `csv:"-" json:"scraped_at"`
}

// StatsOverview summarizes the whole catalog. RatingDistribution only
// carries rating values that actually occur.
type StatsOverview struct {
	TotalBooks         int             `json:"total_books"`
	AveragePrice       decimal.Decimal `json:"average_price"`
	RatingDistribution map[int]int     `json:"rating_distribution"`
}

// CategoryStat summarizes one category group.
type CategoryStat struct {
	Category     string          `json:"category"`
	TotalBooks   int             `json:"total_books"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// ScrapeResult holds the overall result of one scraping run.
type ScrapeResult struct {
	Books        []*ScrapedBook
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
	PageCount    int
}
