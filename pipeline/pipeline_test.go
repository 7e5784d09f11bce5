package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/csousa/bookdata-api/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.ScrapedBook
	writeErr    error
	validateErr error
}

func (mw *mockWriter) Write(books []*models.ScrapedBook) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]*models.ScrapedBook, len(books))
	copy(copyBatch, books)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) totalWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	total := 0
	for _, batch := range mw.batches {
		total += len(batch)
	}
	return total
}

func scrapedBook(title, url string) *models.ScrapedBook {
	return &models.ScrapedBook{
		Title:        title,
		Price:        "£10.00",
		Rating:       "Two",
		Availability: " In stock ",
		Category:     "Fiction",
		BookURL:      url,
		ScrapedAt:    time.Now(),
	}
}

func newTestPipeline(t *testing.T, writer OutputWriter) *Pipeline {
	t.Helper()
	p, err := NewPipeline(writer, 128, 64, 1000)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestPipelineValidationAndDedup(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer)
	p.Start(1)

	valid := scrapedBook("Clean Architecture", "http://example.test/book/1")
	invalid := scrapedBook("", "http://example.test/book/2")
	duplicate := scrapedBook("Clean Architecture", "http://example.test/book/1")

	for _, b := range []*models.ScrapedBook{valid, invalid, duplicate} {
		if err := p.Process(b); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 1 {
		t.Fatalf("written books = %d, want 1", got)
	}
	if got := p.Processed(); got != 1 {
		t.Fatalf("processed = %d, want 1", got)
	}

	validation := p.ValidationErrors()
	if validation["invalid_record"] != 1 {
		t.Fatalf("invalid_record = %d, want 1", validation["invalid_record"])
	}
	if validation["duplicate_url"] != 1 {
		t.Fatalf("duplicate_url = %d, want 1", validation["duplicate_url"])
	}
}

func TestPipelineNormalizesRecords(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer)
	p.Start(1)

	if err := p.Process(scrapedBook("Some Book", "http://example.test/book/1")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if writer.totalWritten() != 1 {
		t.Fatalf("written = %d, want 1", writer.totalWritten())
	}
	got := writer.batches[0][0]
	if got.Price != "10.00" {
		t.Fatalf("price = %q, want currency symbol stripped", got.Price)
	}
	if got.Availability != "In stock" {
		t.Fatalf("availability = %q, want trimmed", got.Availability)
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	p := newTestPipeline(t, &mockWriter{})
	p.Start(1)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process(scrapedBook("Late", "http://example.test/late")); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close error = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineWriterErrorSurfaces(t *testing.T) {
	writer := &mockWriter{writeErr: fmt.Errorf("disk full")}
	p, err := NewPipeline(writer, 16, 1, 1000)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	p.Start(1)

	_ = p.Process(scrapedBook("Doomed", "http://example.test/doomed"))

	// Close reports the first write error.
	if err := p.Close(); err == nil {
		t.Fatal("expected write error from Close")
	}
}

func TestPipelineManyWorkers(t *testing.T) {
	writer := &mockWriter{}
	p, err := NewPipeline(writer, 256, 8, 10000)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	p.Start(4)

	const n = 500
	for i := 0; i < n; i++ {
		book := scrapedBook("Book "+strconv.Itoa(i), "http://example.test/book/"+strconv.Itoa(i))
		if err := p.Process(book); err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != n {
		t.Fatalf("written = %d, want %d", got, n)
	}
}

func TestNewPipelineRejectsBadDedupeSize(t *testing.T) {
	if _, err := NewPipeline(&mockWriter{}, 16, 8, 0); err == nil {
		t.Fatal("expected error for non-positive dedupe cache size")
	}
}
