// Package scraper crawls the book listing site: listing pages are
// walked through their "next" links and every book's detail page is
// fetched for the full record, including its breadcrumb category.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/csousa/bookdata-api/config"
	"github.com/csousa/bookdata-api/models"
	"github.com/csousa/bookdata-api/pipeline"
)

// Scraper wraps the colly collector and retry logic for the crawl.
type Scraper struct {
	cfg       *config.ScraperConfig
	collector *colly.Collector
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	pageCount    int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.ScraperConfig) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.retry = newRetryManager(collector, cfg, s.Metrics)
	return s, nil
}

// Run starts the crawl and streams records through the pipeline.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.configureHandlers(ctx, p)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.collector.Wait()
			s.retry.Stop()
		case <-done:
		}
	}()

	if err := s.collector.Visit(s.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("initial visit: %w", err)
	}

	s.collector.Wait()
	s.retry.Stop()

	result := &models.ScrapeResult{
		StartTime:    start,
		EndTime:      time.Now(),
		TotalCount:   int(p.Processed()),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
		RetryCount:   s.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		PageCount:    int(atomic.LoadInt64(&s.pageCount)) + 1,
	}

	return result, nil
}

func (s *Scraper) configureHandlers(ctx context.Context, p *pipeline.Pipeline) {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			current := atomic.AddInt64(&s.requestCount, 1)
			s.Metrics.IncRequest("started")
			if current%50 == 0 {
				slog.Debug("crawl progress",
					slog.Int64("requests", current),
					slog.Int64("pages", atomic.LoadInt64(&s.pageCount)),
					slog.String("url", r.URL.String()),
				)
			}
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if r.StatusCode >= http.StatusBadRequest {
				slog.Error("non-200 response",
					slog.Int("status", r.StatusCode),
					slog.String("url", r.Request.URL.String()),
				)
			}
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			atomic.AddInt64(&s.errorCount, 1)
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			kind := errorKindLabel(classifyError(err, statusCode))

			s.mu.Lock()
			s.errorsByType[kind]++
			s.mu.Unlock()

			url := ""
			if r != nil && r.Request != nil && r.Request.URL != nil {
				url = r.Request.URL.String()
			}
			slog.Error("request error",
				slog.String("url", url),
				slog.String("kind", kind),
				slog.Any("error", err),
			)
			s.Metrics.IncError(kind)

			if !s.retry.Schedule(url) {
				s.mu.Lock()
				s.failedURLs = append(s.failedURLs, url)
				s.mu.Unlock()
			}
		})

		// Listing page: enqueue each book's detail page.
		s.collector.OnHTML("article.product_pod h3 a", func(e *colly.HTMLElement) {
			if ctx.Err() != nil {
				return
			}
			href := e.Attr("href")
			if href == "" {
				return
			}
			s.collector.Visit(e.Request.AbsoluteURL(href))
		})

		// Listing page: follow the "next" link until it disappears.
		s.collector.OnHTML("li.next a", func(e *colly.HTMLElement) {
			currentPage := atomic.AddInt64(&s.pageCount, 1)
			s.Metrics.IncPages()
			if currentPage >= int64(s.cfg.MaxPages) {
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.collector.Visit(e.Request.AbsoluteURL(e.Attr("href")))
		})

		// Detail page: extract the full record.
		s.collector.OnHTML("body", func(e *colly.HTMLElement) {
			book := extractDetail(e)
			if book == nil {
				return
			}
			s.Metrics.IncBooks()
			if err := p.Process(book); err != nil && err != pipeline.ErrPipelineClosed {
				slog.Error("pipeline process error", slog.Any("error", err))
			}
		})
	})
}

// extractDetail pulls a record out of a book detail page. Returns nil
// for any other page (listing pages share the crawl).
func extractDetail(e *colly.HTMLElement) *models.ScrapedBook {
	title := strings.TrimSpace(e.ChildText("div.product_main h1"))
	if title == "" {
		return nil
	}

	priceText := strings.TrimSpace(e.ChildText("div.product_main p.price_color"))

	ratingText := ""
	if ratingClass := e.ChildAttr("div.product_main p.star-rating", "class"); ratingClass != "" {
		parts := strings.Fields(ratingClass)
		if len(parts) > 1 {
			ratingText = parts[1]
		}
	}

	availability := strings.TrimSpace(e.ChildText("div.product_main p.instock.availability"))
	if availability == "" {
		availability = strings.TrimSpace(e.ChildText("div.product_main p.availability"))
	}

	// Breadcrumb is Home / Books / <category>; the category is the
	// third anchor.
	category := ""
	if crumbs := e.ChildTexts("ul.breadcrumb li a"); len(crumbs) >= 3 {
		category = strings.TrimSpace(crumbs[2])
	}

	imageURL := e.ChildAttr("div.item.active img", "src")
	if imageURL == "" {
		imageURL = e.ChildAttr("div#product_gallery img", "src")
	}

	return &models.ScrapedBook{
		Title:        title,
		Price:        priceText,
		Rating:       ratingText,
		Availability: availability,
		Category:     category,
		ImageURL:     e.Request.AbsoluteURL(imageURL),
		BookURL:      e.Request.URL.String(),
		ScrapedAt:    time.Now(),
	}
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
