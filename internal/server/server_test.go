package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedloom/internal/dedupe"
	"feedloom/internal/server"
	"feedloom/internal/storage"
	"feedloom/internal/storage/sqlite"
	"feedloom/internal/types"
)

type stubAggregator struct {
	mu    sync.Mutex
	calls []string
	items func(source, q string) []types.ContentItem
}

func (s *stubAggregator) Aggregate(_ context.Context, source, q string) []types.ContentItem {
	s.mu.Lock()
	s.calls = append(s.calls, source+"|"+q)
	s.mu.Unlock()
	return s.items(source, q)
}

func (s *stubAggregator) Has(source string) bool {
	return source == "wikipedia" || source == "github"
}

func (s *stubAggregator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func batch(provider string, n int) []types.ContentItem {
	items := make([]types.ContentItem, n)
	for i := range items {
		items[i] = types.ContentItem{
			SourceItemID: fmt.Sprint(i),
			Provider:     provider,
			Category:     types.CategoryArticle,
			Title:        fmt.Sprintf("%s article %d", provider, i),
			Excerpt:      "An excerpt long enough to be considered a real summary.",
			ThumbnailURL: fmt.Sprintf("https://img.example/%d.png", i),
			CanonicalURL: fmt.Sprintf("https://%s.example/%d", provider, i),
			FetchedAt:    time.Now().UTC(),
		}
	}
	return items
}

type fixture struct {
	srv   *httptest.Server
	agg   *stubAggregator
	store storage.StorageInterface
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	agg := &stubAggregator{items: func(source, q string) []types.ContentItem {
		if q != "" {
			return batch("github", 3)
		}
		if source == "github" {
			return batch("github", 4)
		}
		return batch("wikipedia", 15)
	}}

	s := server.New(server.Config{
		Name:     "feedloom-test",
		PageSize: 10,
		Sources:  []server.Source{{ID: "wikipedia", ContentType: types.CategoryArticle}},
	}, agg, dedupe.New(storage.NewLookup(store), nil), store, nil)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, agg: agg, store: store}
}

func (f *fixture) get(t *testing.T, path, user string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(server.UserHeader, user)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) post(t *testing.T, path, user string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, nil)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(server.UserHeader, user)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeContents(t *testing.T, resp *http.Response) []storage.StoredContent {
	t.Helper()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var contents []storage.StoredContent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&contents))
	return contents
}

func TestContentsPageOneAggregatesAndPersists(t *testing.T) {
	f := newFixture(t)

	page1 := decodeContents(t, f.get(t, "/api/contents?page=1", ""))
	assert.Len(t, page1, 10)
	assert.Equal(t, 1, f.agg.callCount())
	assert.NotZero(t, page1[0].ID)
	assert.Equal(t, "wikipedia", page1[0].Provider)

	page2 := decodeContents(t, f.get(t, "/api/contents?page=2", ""))
	assert.Len(t, page2, 5)
	assert.Equal(t, 1, f.agg.callCount(), "later pages are served from storage")
}

func TestContentsSourceFilter(t *testing.T) {
	f := newFixture(t)

	contents := decodeContents(t, f.get(t, "/api/contents?source=github", ""))
	assert.Len(t, contents, 4)
	for _, c := range contents {
		assert.Equal(t, "github", c.Provider)
	}
	assert.Equal(t, []string{"github|"}, f.agg.calls)

	resp := f.get(t, "/api/contents?source=podcasts", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContentsBadPage(t *testing.T) {
	f := newFixture(t)

	for _, page := range []string{"0", "-1", "abc"} {
		resp := f.get(t, "/api/contents?page="+page, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, page)
	}
}

func TestContentsSearch(t *testing.T) {
	f := newFixture(t)

	results := decodeContents(t, f.get(t, "/api/contents?q=neural+networks", ""))
	assert.Len(t, results, 3)
	assert.Equal(t, []string{"|neural networks"}, f.agg.calls)

	more := decodeContents(t, f.get(t, "/api/contents?q=neural+networks&page=2", ""))
	assert.Empty(t, more)
	assert.Equal(t, 1, f.agg.callCount())
}

func TestHiddenItemsDisappearForThatUser(t *testing.T) {
	f := newFixture(t)

	page := decodeContents(t, f.get(t, "/api/contents", "alice"))
	require.NotEmpty(t, page)
	target := page[0]

	resp := f.post(t, fmt.Sprintf("/api/contents/%d/hide", target.ID), "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range decodeContents(t, f.get(t, "/api/contents", "alice")) {
		assert.NotEqual(t, target.ID, c.ID)
	}

	found := false
	for _, c := range decodeContents(t, f.get(t, "/api/contents", "bob")) {
		found = found || c.ID == target.ID
	}
	assert.True(t, found)
}

func TestInteractions(t *testing.T) {
	f := newFixture(t)

	page := decodeContents(t, f.get(t, "/api/contents", ""))
	require.NotEmpty(t, page)
	id := page[0].ID

	resp := f.post(t, fmt.Sprintf("/api/contents/%d/like", id), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.post(t, fmt.Sprintf("/api/contents/%d/like", id), "alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var liked storage.StoredContent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&liked))
	assert.Equal(t, 1, liked.Likes)

	resp = f.post(t, fmt.Sprintf("/api/contents/%d/bookmark", id), "alice")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.post(t, "/api/contents/99999/share", "alice")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.get(t, fmt.Sprintf("/api/contents/%d", id), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got storage.StoredContent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, page[0].Title, got.Title)
}

func TestFeedExports(t *testing.T) {
	f := newFixture(t)
	decodeContents(t, f.get(t, "/api/contents", ""))

	cases := map[string]string{
		"/feed.rss":  "<rss",
		"/feed.atom": "<feed",
		"/feed.json": `"items"`,
	}

	for path, marker := range cases {
		resp := f.get(t, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), marker, path)
		assert.Contains(t, string(body), "wikipedia article 0", path)
	}
}

func TestSourcesAndHealth(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/sources", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sources []server.Source
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sources))
	assert.Equal(t, []server.Source{{ID: "wikipedia", ContentType: types.CategoryArticle}}, sources)

	resp = f.get(t, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
}
