package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"

	"feedloom/internal/config"
	"feedloom/internal/transport"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const (
	arxivAPI           = "https://export.arxiv.org/api/query"
	arxivDiscoverQuery = "cat:cs.AI OR cat:cs.LG"

	// ArxivSummaryLength bounds the summary kept as the excerpt.
	ArxivSummaryLength = 300
)

// Arxiv parses the arXiv query API, which answers in Atom.
type Arxiv struct {
	base
	discoverQuery string
}

func NewArxiv(t *transport.Transport, opts Options) *Arxiv {
	return &Arxiv{
		base:          newBase(t, opts, "arxiv", types.CategoryResearchPaper, arxivAPI, 10),
		discoverQuery: config.GetString(opts.Settings, "query", arxivDiscoverQuery),
	}
}

func (a *Arxiv) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	params := url.Values{
		"start":       {"0"},
		"max_results": {strconv.Itoa(a.maxItems)},
		"sortOrder":   {"descending"},
	}

	if term, ok := searching(searchTerm); ok {
		params.Set("search_query", "all:"+term)
		params.Set("sortBy", "relevance")
	} else {
		params.Set("search_query", a.discoverQuery)
		params.Set("sortBy", "lastUpdatedDate")
	}

	resp, err := a.transport.Get(ctx, a.name, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query arxiv: %w", err)
	}

	entries, err := ParseArxivFeed(resp.Body)
	if err != nil {
		return nil, types.NewParseError(a.name, "atom", err)
	}

	items := make([]types.RawItem, 0, len(entries))
	for _, entry := range utils.Take(entries, a.maxItems) {
		item := a.raw(entry.ID)
		item.Title = entry.Title
		item.Excerpt = entry.Summary
		item.CanonicalURL = entry.Link
		item.Metadata = map[string]interface{}{
			"authors":    entry.Authors,
			"categories": entry.Categories,
		}
		if !entry.Published.IsZero() {
			item.Metadata["published"] = entry.Published.Format(time.RFC3339)
		}

		items = append(items, item)
	}

	return items, nil
}

type ArxivEntry struct {
	ID         string
	Title      string
	Summary    string
	Authors    []string
	Categories []string
	Link       string
	Published  time.Time
}

// ParseArxivFeed reads an arXiv Atom document. Titles and summaries are
// whitespace-collapsed and summaries are cut to ArxivSummaryLength runes.
func ParseArxivFeed(data []byte) ([]ArxivEntry, error) {
	parser := &atom.Parser{}
	feed, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse atom feed: %w", err)
	}

	entries := make([]ArxivEntry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if e == nil {
			continue
		}

		entry := ArxivEntry{
			ID:      strings.TrimSpace(e.ID),
			Title:   utils.CollapseWhitespace(e.Title),
			Summary: utils.Truncate(utils.CollapseWhitespace(e.Summary), ArxivSummaryLength),
			Authors: make([]string, 0, len(e.Authors)),
			Link:    strings.TrimSpace(e.ID),
		}

		for _, author := range e.Authors {
			if author != nil && strings.TrimSpace(author.Name) != "" {
				entry.Authors = append(entry.Authors, strings.TrimSpace(author.Name))
			}
		}

		for _, c := range e.Categories {
			if c != nil && c.Term != "" {
				entry.Categories = append(entry.Categories, c.Term)
			}
		}

		for _, link := range e.Links {
			if link != nil && link.Href != "" && (link.Rel == "" || link.Rel == "alternate") {
				entry.Link = link.Href
				break
			}
		}

		if e.PublishedParsed != nil {
			entry.Published = *e.PublishedParsed
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
