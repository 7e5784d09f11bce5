// Package catalog loads the scraped CSV snapshot and serves it to the
// query layer. A Snapshot is immutable once built; the Store swaps whole
// snapshots atomically so readers never observe a partial reload.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/csousa/bookdata-api/models"
	"github.com/csousa/bookdata-api/parser"
)

// Columns the source file must name in its header row. Extra columns
// are ignored.
var requiredColumns = []string{
	"title", "price", "rating", "availability", "category", "image_url", "book_url",
}

// LoadCSV reads a catalog snapshot from a CSV file. A missing or
// unreadable file is a hard failure; per-row anomalies are not.
func LoadCSV(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	snap, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", path, err)
	}
	return snap, nil
}

// Read builds a snapshot from CSV data. The header must name every
// required column; malformed rows degrade per field (price and rating
// fall back to their zero sentinels) or, when the field count is off,
// are skipped entirely.
func Read(r io.Reader) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var books []models.Book
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) < len(header) {
			continue
		}

		field := func(name string) string { return row[idx[name]] }
		books = append(books, models.Book{
			ID:           len(books),
			Title:        field("title"),
			Price:        parser.ParsePrice(field("price")),
			Rating:       parser.RatingToNumeric(field("rating")),
			Availability: field("availability"),
			Category:     field("category"),
			ImageURL:     field("image_url"),
			BookURL:      field("book_url"),
		})
	}

	return newSnapshot(books), nil
}
