package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/jarcoal/httpmock"

	"github.com/csousa/bookdata-api/config"
	"github.com/csousa/bookdata-api/models"
	"github.com/csousa/bookdata-api/pipeline"
)

func TestRetryManagerScheduleRespectsLimit(t *testing.T) {
	cfg := config.DefaultScraperConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Hour
	cfg.RetryBackoffMax = time.Hour

	rm := newRetryManager(colly.NewCollector(), cfg, NewMetrics())

	if !rm.Schedule("http://example.com/page") {
		t.Fatalf("first retry should be scheduled")
	}
	if !rm.Schedule("http://example.com/page") {
		t.Fatalf("second retry should be scheduled")
	}
	if rm.Schedule("http://example.com/page") {
		t.Fatalf("third retry should not be scheduled")
	}

	rm.Stop()
	if got := rm.TotalRetries(); got != 2 {
		t.Fatalf("total retries = %d, want 2", got)
	}
}

func TestRetryManagerBackoffCapped(t *testing.T) {
	cfg := config.DefaultScraperConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	rm := newRetryManager(colly.NewCollector(), cfg, NewMetrics())

	if delay := rm.backoff(4); delay > cfg.RetryBackoffMax {
		t.Fatalf("delay %v exceeds max %v", delay, cfg.RetryBackoffMax)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorKindLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

type collectingWriter struct {
	mu    sync.Mutex
	books []*models.ScrapedBook
}

func (cw *collectingWriter) Write(books []*models.ScrapedBook) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.books = append(cw.books, books...)
	return nil
}

func (cw *collectingWriter) Close() error {
	return nil
}

func (cw *collectingWriter) Validate() error {
	return nil
}

func (cw *collectingWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return len(cw.books)
}

func (cw *collectingWriter) All() []*models.ScrapedBook {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]*models.ScrapedBook, len(cw.books))
	copy(out, cw.books)
	return out
}

func htmlResponder(body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "text/html")
		resp.Request = req
		return resp, nil
	}
}

func buildListingPage(page, booksPerPage int, hasNext bool) string {
	var sb strings.Builder
	sb.WriteString("<html><body><ol class=\"row\">")
	for i := 1; i <= booksPerPage; i++ {
		n := (page-1)*booksPerPage + i
		fmt.Fprintf(&sb, `<li><article class="product_pod"><h3><a href="catalogue/book-%d.html" title="Book %d">Book %d</a></h3></article></li>`, n, n, n)
	}
	sb.WriteString("</ol>")
	if hasNext {
		fmt.Fprintf(&sb, `<ul class="pager"><li class="next"><a href="page-%d.html">next</a></li></ul>`, page+1)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func buildDetailPage(n int) string {
	return fmt.Sprintf(`<html><body>
<ul class="breadcrumb">
  <li><a href="/">Home</a></li>
  <li><a href="/books">Books</a></li>
  <li><a href="/books/fiction">Fiction</a></li>
  <li class="active">Book %d</li>
</ul>
<div class="item active"><img src="../media/book-%d.jpg"/></div>
<div class="product_main">
  <h1>Book %d</h1>
  <p class="price_color">£%d.00</p>
  <p class="instock availability"> In stock (5 available) </p>
  <p class="star-rating Two"></p>
</div>
</body></html>`, n, n, n, n)
}

func TestScraperCrawlsListingAndDetailPages(t *testing.T) {
	cfg := config.DefaultScraperConfig()
	cfg.BaseURL = "http://example.test/"
	cfg.MaxPages = 3
	cfg.Parallelism = 4
	cfg.MaxRetries = 0

	transport := httpmock.NewMockTransport()
	page1 := buildListingPage(1, 2, true)
	page2 := buildListingPage(2, 2, false)
	transport.RegisterResponder("GET", cfg.BaseURL, htmlResponder(page1))
	transport.RegisterResponder("GET", strings.TrimSuffix(cfg.BaseURL, "/"), htmlResponder(page1))
	transport.RegisterResponder("GET", cfg.BaseURL+"page-2.html", htmlResponder(page2))
	for n := 1; n <= 4; n++ {
		transport.RegisterResponder("GET", fmt.Sprintf("%scatalogue/book-%d.html", cfg.BaseURL, n), htmlResponder(buildDetailPage(n)))
	}

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.collector.WithTransport(transport)

	writer := &collectingWriter{}
	p, err := pipeline.NewPipeline(writer, 128, 64, 1000)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	p.Start(2)

	result, err := s.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := writer.Count(); got != 4 {
		t.Fatalf("books=%d, want 4 (requests=%d errors=%d failed=%v)", got, result.RequestCount, result.ErrorCount, result.FailedURLs)
	}

	var sample *models.ScrapedBook
	for _, book := range writer.All() {
		if book.BookURL == "http://example.test/catalogue/book-1.html" {
			sample = book
			break
		}
	}
	if sample == nil {
		t.Fatal("expected book-1 in the output")
	}
	if sample.Title != "Book 1" {
		t.Fatalf("title=%q, want %q", sample.Title, "Book 1")
	}
	if sample.Price != "1.00" {
		t.Fatalf("price=%q, want %q", sample.Price, "1.00")
	}
	if sample.Rating != "Two" {
		t.Fatalf("rating=%q, want Two", sample.Rating)
	}
	if sample.Category != "Fiction" {
		t.Fatalf("category=%q, want Fiction (third breadcrumb anchor)", sample.Category)
	}
	if sample.ImageURL != "http://example.test/media/book-1.jpg" {
		t.Fatalf("image=%q, want absolute media URL", sample.ImageURL)
	}
	if sample.Availability == "" {
		t.Fatal("availability should not be empty")
	}
}

func TestScraperClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			cfg := config.DefaultScraperConfig()
			cfg.BaseURL = "http://example.test/"
			cfg.MaxPages = 1
			cfg.Parallelism = 1
			cfg.MaxRetries = 0

			transport := httpmock.NewMockTransport()
			responder := httpmock.NewStringResponder(tt.status, "")
			transport.RegisterResponder("GET", cfg.BaseURL, responder)
			transport.RegisterResponder("GET", strings.TrimSuffix(cfg.BaseURL, "/"), responder)

			s, err := NewScraper(cfg)
			if err != nil {
				t.Fatalf("new scraper: %v", err)
			}
			s.collector.WithTransport(transport)

			writer := &collectingWriter{}
			p, err := pipeline.NewPipeline(writer, 16, 1, 100)
			if err != nil {
				t.Fatalf("new pipeline: %v", err)
			}
			p.Start(1)

			result, err := s.Run(context.Background(), p)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Fatalf("close pipeline: %v", err)
			}

			if got := result.ErrorsByType[tt.expected]; got == 0 {
				t.Fatalf("expected %q classification for status %d, got %v", tt.expected, tt.status, result.ErrorsByType)
			}
		})
	}
}

func TestExtractDetailIgnoresListingPages(t *testing.T) {
	cfg := config.DefaultScraperConfig()
	cfg.BaseURL = "http://example.test/"
	cfg.MaxPages = 1
	cfg.MaxRetries = 0

	transport := httpmock.NewMockTransport()
	listing := buildListingPage(1, 1, false)
	transport.RegisterResponder("GET", cfg.BaseURL, htmlResponder(listing))
	transport.RegisterResponder("GET", strings.TrimSuffix(cfg.BaseURL, "/"), htmlResponder(listing))
	transport.RegisterResponder("GET", cfg.BaseURL+"catalogue/book-1.html", httpmock.NewStringResponder(http.StatusNotFound, ""))

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.collector.WithTransport(transport)

	writer := &collectingWriter{}
	p, err := pipeline.NewPipeline(writer, 16, 1, 100)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	p.Start(1)

	if _, err := s.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	// The listing page alone yields no records.
	if got := writer.Count(); got != 0 {
		t.Fatalf("books=%d, want 0", got)
	}
}
