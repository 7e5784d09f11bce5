// Package pipeline coordinates validation, de-duplication and output
// writing for scraped records.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/csousa/bookdata-api/models"
	"github.com/csousa/bookdata-api/parser"
)

// ErrPipelineClosed is returned when Process is called after shutdown.
var ErrPipelineClosed = errors.New("pipeline: closed")

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(books []*models.ScrapedBook) error
	Close() error
	Validate() error
}

// Pipeline fans scraped records out to workers that validate,
// de-duplicate by book URL, normalize, and batch them to the writer.
type Pipeline struct {
	writer    OutputWriter
	bookCh    chan *models.ScrapedBook
	batchSize int

	wg sync.WaitGroup

	// Bounded de-duplication cache keyed by book URL. The catalog is
	// small enough that the cache never evicts in practice; the bound
	// protects long runs against unbounded growth.
	seen *lru.Cache[string, struct{}]

	metrics counters

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing to writer. bufferSize bounds
// the in-flight queue, batchSize the writer batches, dedupeSize the
// de-duplication cache.
func NewPipeline(writer OutputWriter, bufferSize, batchSize, dedupeSize int) (*Pipeline, error) {
	if bufferSize <= 0 {
		bufferSize = 512
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	return &Pipeline{
		writer:    writer,
		bookCh:    make(chan *models.ScrapedBook, bufferSize),
		batchSize: batchSize,
		seen:      seen,
		metrics:   newCounters(),
		shutdown:  make(chan struct{}),
	}, nil
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues one record for downstream processing.
func (p *Pipeline) Process(book *models.ScrapedBook) error {
	if book == nil {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	return p.enqueue(book)
}

// Close waits for workers to finish and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.bookCh)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Processed returns the count of records written so far.
func (p *Pipeline) Processed() int64 {
	return p.metrics.processedCount()
}

// ValidationErrors returns a snapshot of validation failure counts by
// kind.
func (p *Pipeline) ValidationErrors() map[string]int {
	return p.metrics.validationSnapshot()
}

// StartMetricsReporting emits periodic progress logs until shutdown.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				slog.Info("pipeline progress",
					slog.Int64("processed", p.Processed()),
					slog.Int("validation_error_kinds", len(p.ValidationErrors())),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.ScrapedBook, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for book := range p.bookCh {
		prepared := p.prepare(book)
		if prepared == nil {
			continue
		}
		batch = append(batch, prepared)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) prepare(book *models.ScrapedBook) *models.ScrapedBook {
	if err := parser.ValidateScraped(book); err != nil {
		p.metrics.addValidation("invalid_record")
		return nil
	}

	if ok, _ := p.seen.ContainsOrAdd(book.BookURL, struct{}{}); ok {
		p.metrics.addValidation("duplicate_url")
		return nil
	}

	book.Price = parser.NormalizePrice(book.Price)
	book.Availability = parser.NormalizeAvailability(book.Availability)

	p.metrics.incrementProcessed()
	return book
}

func (p *Pipeline) enqueue(book *models.ScrapedBook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.bookCh <- book:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.bookCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type counters struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newCounters() counters {
	return counters{
		validation: make(map[string]int),
	}
}

func (m *counters) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *counters) processedCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed
}

func (m *counters) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *counters) validationSnapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		out[k] = v
	}
	return out
}
