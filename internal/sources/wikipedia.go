package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"feedloom/internal/config"
	"feedloom/internal/transport"
	"feedloom/internal/types"
)

const (
	wikipediaAPI        = "https://en.wikipedia.org/w/api.php"
	wikipediaArticleURL = "https://en.wikipedia.org/wiki/"
)

// Wikipedia pulls random or matching articles from the MediaWiki action API
// with intro extracts and page images in a single request.
type Wikipedia struct {
	base
	articleURL string
}

type wikiResponse struct {
	Query *struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	PageID    int64  `json:"pageid"`
	Title     string `json:"title"`
	Index     int    `json:"index"`
	Extract   string `json:"extract"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

func NewWikipedia(t *transport.Transport, opts Options) *Wikipedia {
	return &Wikipedia{
		base:       newBase(t, opts, "wikipedia", types.CategoryArticle, wikipediaAPI, 20),
		articleURL: config.GetString(opts.Settings, "article_url", wikipediaArticleURL),
	}
}

func (w *Wikipedia) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	limit := strconv.Itoa(w.maxItems)

	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"extracts|pageimages"},
		"exchars":     {"300"},
		"exlimit":     {limit},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"piprop":      {"thumbnail"},
		"pithumbsize": {"500"},
		"pilimit":     {limit},
		"origin":      {"*"},
	}

	if term, ok := searching(searchTerm); ok {
		params.Set("generator", "search")
		params.Set("gsrsearch", term)
		params.Set("gsrnamespace", "0")
		params.Set("gsrlimit", limit)
	} else {
		params.Set("generator", "random")
		params.Set("grnnamespace", "0")
		params.Set("grnlimit", limit)
	}

	var resp wikiResponse
	if err := w.getJSON(ctx, w.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to query wikipedia: %w", err)
	}

	// A search with no hits has no query object at all.
	if resp.Query == nil {
		return []types.RawItem{}, nil
	}

	pages := make([]wikiPage, 0, len(resp.Query.Pages))
	for _, page := range resp.Query.Pages {
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Index != pages[j].Index {
			return pages[i].Index < pages[j].Index
		}
		return pages[i].PageID < pages[j].PageID
	})

	items := make([]types.RawItem, 0, len(pages))
	for _, page := range pages {
		item := w.raw(strconv.FormatInt(page.PageID, 10))
		item.Title = page.Title
		item.Excerpt = page.Extract
		item.CanonicalURL = w.articleURL + url.PathEscape(strings.ReplaceAll(page.Title, " ", "_"))
		item.Metadata = map[string]interface{}{
			"pageid": page.PageID,
		}
		if page.Thumbnail != nil {
			item.ThumbnailURL = page.Thumbnail.Source
		}

		items = append(items, item)
		if len(items) == w.maxItems {
			break
		}
	}

	return items, nil
}
