package rss

import "context"

type Feed struct {
	URL      string
	Name     string
	MaxItems int
}

// FetchFunc retrieves a document body. Callers pass the rate-limited
// transport so that feed and OPML requests share the provider budget.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)
