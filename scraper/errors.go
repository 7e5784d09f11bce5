package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies crawl failures for metrics and reporting.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindConnection  ErrorKind = "connection"
	KindForbidden   ErrorKind = "forbidden"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindOther       ErrorKind = "other"
	KindUnknown     ErrorKind = "unknown"
)

// CrawlError wraps a request failure with its classification.
type CrawlError struct {
	Kind ErrorKind
	Err  error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// classifyError maps a transport error and status code onto a
// CrawlError. A nil error with status 0 stays nil.
func classifyError(err error, statusCode int) *CrawlError {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &CrawlError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &CrawlError{Kind: KindTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &CrawlError{Kind: KindConnection, Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return &CrawlError{Kind: KindForbidden, Err: wrapped}
		case http.StatusNotFound:
			return &CrawlError{Kind: KindNotFound, Err: wrapped}
		case http.StatusTooManyRequests:
			return &CrawlError{Kind: KindRateLimited, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return &CrawlError{Kind: KindOther, Err: err}
}

// errorKindLabel returns the metric label for a classified error.
func errorKindLabel(err *CrawlError) string {
	if err == nil {
		return string(KindUnknown)
	}
	return string(err.Kind)
}
