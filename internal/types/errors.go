package types

import (
	"errors"
	"fmt"
	"time"
)

// TransportError is a network-level failure talking to a provider.
type TransportError struct {
	Provider string
	URL      string
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s: %v", e.Provider, e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// TimeoutError is a TransportError caused by the per-call deadline.
type TimeoutError struct {
	TransportError
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport %s: %s: timed out after %s", e.Provider, e.URL, e.Timeout)
}

func (e *TimeoutError) As(target interface{}) bool {
	if t, ok := target.(**TransportError); ok {
		*t = &e.TransportError
		return true
	}
	return false
}

// RateLimitedError is an HTTP 429 response. It is the only error the retry
// policy retries.
type RateLimitedError struct {
	Provider   string
	URL        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s: %s (retry after %s)", e.Provider, e.URL, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited by %s: %s", e.Provider, e.URL)
}

// StatusError is any other non-2xx provider response.
type StatusError struct {
	Provider   string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s: HTTP %d for %s", e.Provider, e.StatusCode, e.URL)
}

type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// ParseError is a malformed provider response.
type ParseError struct {
	Provider string
	Format   string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response from %s: %v", e.Format, e.Provider, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func NewParseError(provider, format string, cause error) *ParseError {
	return &ParseError{Provider: provider, Format: format, Cause: cause}
}

// RejectedError marks a raw item that failed validation. It is a filter
// outcome, not a pipeline failure.
type RejectedError struct {
	Provider     string
	SourceItemID string
	Reason       string
	Details      map[string]interface{}
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected %s item %q: %s", e.Provider, e.SourceItemID, e.Reason)
}

func NewRejectedError(provider, sourceItemID, reason string) *RejectedError {
	return &RejectedError{
		Provider:     provider,
		SourceItemID: sourceItemID,
		Reason:       reason,
		Details:      make(map[string]interface{}),
	}
}

func (e *RejectedError) WithDetail(key string, value interface{}) *RejectedError {
	e.Details[key] = value
	return e
}

type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Name)
}

func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
