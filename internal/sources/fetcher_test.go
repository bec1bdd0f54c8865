package sources_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedloom/internal/retry"
	"feedloom/internal/sources"
	"feedloom/internal/types"
)

type stubProvider struct {
	name   string
	exempt bool
	calls  atomic.Int32
	fetch  func(call int, searchTerm string) ([]types.RawItem, error)
}

func (s *stubProvider) Name() string             { return s.name }
func (s *stubProvider) Category() types.Category { return types.CategoryArticle }
func (s *stubProvider) ExcerptExempt() bool      { return s.exempt }

func (s *stubProvider) Fetch(_ context.Context, searchTerm string) ([]types.RawItem, error) {
	call := int(s.calls.Add(1))
	return s.fetch(call, searchTerm)
}

func rawItems(provider string, n int) []types.RawItem {
	items := make([]types.RawItem, n)
	for i := range items {
		items[i] = types.RawItem{
			SourceItemID: fmt.Sprint(i),
			Provider:     provider,
			Category:     types.CategoryArticle,
			Title:        fmt.Sprintf("Item number %d", i),
			Excerpt:      longText,
			CanonicalURL: fmt.Sprintf("https://example.com/%d", i),
		}
	}
	return items
}

var fastRetry = retry.Policy{MaxRetries: 3, Delay: time.Millisecond}

// A provider that answers 429 exactly MaxRetries times and then succeeds
// returns its items.
func TestFetcherSucceedsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "wikipedia", fetch: func(call int, _ string) ([]types.RawItem, error) {
		if call <= fastRetry.MaxRetries {
			return nil, &types.RateLimitedError{Provider: "wikipedia"}
		}
		return rawItems("wikipedia", 4), nil
	}}

	items := sources.NewFetcher(p, fastRetry, 50).Fetch(context.Background(), "")

	assert.Len(t, items, 4)
	assert.Equal(t, int32(fastRetry.MaxRetries+1), p.calls.Load())
}

func TestFetcherEmptyWhenRetriesExhausted(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "github", fetch: func(int, string) ([]types.RawItem, error) {
		return nil, &types.RateLimitedError{Provider: "github"}
	}}

	items := sources.NewFetcher(p, fastRetry, 50).Fetch(context.Background(), "")

	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, int32(fastRetry.MaxRetries+1), p.calls.Load())
}

func TestFetcherEmptyOnFailures(t *testing.T) {
	t.Parallel()

	failures := map[string]func(int, string) ([]types.RawItem, error){
		"status": func(int, string) ([]types.RawItem, error) {
			return nil, &types.StatusError{Provider: "books", StatusCode: http.StatusBadGateway}
		},
		"parse": func(int, string) ([]types.RawItem, error) {
			return nil, types.NewParseError("books", "json", errors.New("unexpected EOF"))
		},
		"transport": func(int, string) ([]types.RawItem, error) {
			return nil, &types.TransportError{Provider: "books", URL: "https://books.example/api", Cause: errors.New("connection refused")}
		},
		"timeout": func(int, string) ([]types.RawItem, error) {
			return nil, &types.TimeoutError{
				TransportError: types.TransportError{Provider: "books", URL: "https://books.example/api", Cause: context.DeadlineExceeded},
				Timeout:        time.Second,
			}
		},
		"panic": func(int, string) ([]types.RawItem, error) {
			panic("provider bug")
		},
	}

	for name, fetch := range failures {
		t.Run(name, func(t *testing.T) {
			p := &stubProvider{name: "books", fetch: fetch}

			items := sources.NewFetcher(p, fastRetry, 50).Fetch(context.Background(), "")

			assert.Empty(t, items)
			assert.Equal(t, int32(1), p.calls.Load())
		})
	}
}

func TestFetcherLogsOneRejectLine(t *testing.T) {
	t.Parallel()

	raws := rawItems("blogs", 5)
	raws[1].Excerpt = "short"
	raws[3].Title = "Hi"

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := &stubProvider{name: "blogs", fetch: func(int, string) ([]types.RawItem, error) { return raws, nil }}
	items := sources.NewFetcher(p, fastRetry, 50, sources.WithLogger(logger)).Fetch(context.Background(), "")

	assert.Len(t, items, 3)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Rejected invalid items")))
	assert.Contains(t, buf.String(), "rejected=2")
}

func TestFetcherExemptProviderKeepsShortExcerpts(t *testing.T) {
	t.Parallel()

	raws := rawItems("github", 2)
	raws[0].Excerpt = ""

	p := &stubProvider{name: "github", exempt: true, fetch: func(int, string) ([]types.RawItem, error) { return raws, nil }}

	assert.Len(t, sources.NewFetcher(p, fastRetry, 50).Fetch(context.Background(), ""), 2)
}

type recordingBackfiller struct {
	batches int
}

func (r *recordingBackfiller) EnsureAll(_ context.Context, items []types.ContentItem) []types.ContentItem {
	r.batches++
	out := make([]types.ContentItem, len(items))
	for i, item := range items {
		out[i] = item.WithThumbnail("https://img.example/" + item.SourceItemID)
	}
	return out
}

func TestFetcherBackfillsAndStampsTime(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	backfiller := &recordingBackfiller{}

	p := &stubProvider{name: "wikipedia", fetch: func(_ int, term string) ([]types.RawItem, error) {
		assert.Equal(t, "neural networks", term)
		return rawItems("wikipedia", 2), nil
	}}

	items := sources.NewFetcher(p, fastRetry, 50,
		sources.WithBackfiller(backfiller),
		sources.WithClock(func() time.Time { return fixed }),
	).Fetch(context.Background(), "neural networks")

	require.Len(t, items, 2)
	assert.Equal(t, 1, backfiller.batches)
	assert.Equal(t, "https://img.example/0", items[0].ThumbnailURL)
	assert.Equal(t, fixed, items[1].FetchedAt)
}
