package sources

import (
	"context"
	"fmt"
	"sync"

	"feedloom/internal/config"
	"feedloom/internal/sources/rss"
	"feedloom/internal/transport"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

// Feeds aggregates plain RSS/Atom feeds, listed directly or through OPML.
// The feed list is resolved on first use and kept; entries never are.
type Feeds struct {
	base
	configs []rss.SourceConfig
	perFeed int
	reader  *rss.Reader
	extract *articleExtractor

	mu    sync.Mutex
	feeds []rss.Feed
}

func NewFeeds(t *transport.Transport, opts Options) (*Feeds, error) {
	var configs []rss.SourceConfig
	for _, u := range config.GetStringSlice(opts.Settings, "urls") {
		configs = append(configs, rss.SourceConfig{Kind: rss.KindFeedURL, Value: u})
	}
	if path := config.GetString(opts.Settings, "opml_file", ""); path != "" {
		configs = append(configs, rss.SourceConfig{Kind: rss.KindOPMLFile, Value: path})
	}
	if u := config.GetString(opts.Settings, "opml_url", ""); u != "" {
		configs = append(configs, rss.SourceConfig{Kind: rss.KindOPMLURL, Value: u})
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("feeds provider needs settings.urls, settings.opml_file or settings.opml_url")
	}

	f := &Feeds{
		base:    newBase(t, opts, "feeds", types.CategoryBlogPost, "", 20),
		configs: configs,
		perFeed: config.GetInt(opts.Settings, "per_feed_items", 10),
	}
	f.reader = rss.NewReader(f.name, f.category, f.fetchBody, f.logger)

	if config.GetBool(opts.Settings, "extract_excerpts", false) {
		f.extract = &articleExtractor{
			transport: t,
			provider:  f.name,
			minLength: config.GetInt(opts.Settings, "extract_min_length", 50),
		}
	}

	return f, nil
}

func (f *Feeds) fetchBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.transport.Get(ctx, f.name, url, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// resolve loads the feed list once. f.mu is never held across the OPML
// request and a failed resolve is tried again on the next fetch.
func (f *Feeds) resolve(ctx context.Context) ([]rss.Feed, error) {
	f.mu.Lock()
	cached := f.feeds
	f.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	feeds, err := rss.Resolve(ctx, f.fetchBody, f.configs, f.perFeed)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feeds == nil {
		f.logger.Info("Feeds resolved", "count", len(feeds))
		f.feeds = feeds
	}
	return f.feeds, nil
}

func (f *Feeds) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	feeds, err := f.resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve feeds: %w", err)
	}

	items, err := f.reader.Read(ctx, feeds)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds: %w", err)
	}

	if term, ok := searching(searchTerm); ok {
		items = utils.FilterArray(items, func(item types.RawItem) bool {
			return utils.ContainsFold(term, item.Title, item.Excerpt)
		})
	}

	items = utils.Take(items, f.maxItems)
	if f.extract != nil {
		items = f.extract.enrichAll(ctx, items, f.logger)
	}

	return items, nil
}
