package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const maxDescriptionLength = 500

// Reader fetches several feeds concurrently and converts their entries into
// raw items attributed to one provider.
type Reader struct {
	provider string
	category types.Category
	fetch    FetchFunc
	logger   *slog.Logger
}

func NewReader(provider string, category types.Category, fetch FetchFunc, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		provider: provider,
		category: category,
		fetch:    fetch,
		logger:   logger,
	}
}

// Read returns the entries of every feed interleaved across feeds. A feed
// that fails is logged and skipped; the joined errors are returned only
// when no feed produced anything.
func (r *Reader) Read(ctx context.Context, feeds []Feed) ([]types.RawItem, error) {
	perFeed := make([][]types.RawItem, len(feeds))
	errs := make([]error, len(feeds))

	var wg sync.WaitGroup
	for i, feed := range feeds {
		wg.Add(1)
		go func(i int, f Feed) {
			defer wg.Done()
			perFeed[i], errs[i] = r.fetchFeed(ctx, f)
		}(i, feed)
	}
	wg.Wait()

	items := utils.Interleave(perFeed)
	if len(items) == 0 {
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
	}

	return items, nil
}

func (r *Reader) fetchFeed(ctx context.Context, feed Feed) ([]types.RawItem, error) {
	body, err := r.fetch(ctx, feed.URL)
	if err != nil {
		r.logger.Warn("Feed fetch error", "feed", feed.Name, "url", feed.URL, "error", err)
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		r.logger.Warn("Feed parse error", "feed", feed.Name, "url", feed.URL, "error", err)
		return nil, types.NewParseError(r.provider, "feed", fmt.Errorf("%s: %w", feed.URL, err))
	}

	r.logger.Debug("Feed retrieved", "feed", feed.Name, "items", len(parsed.Items))

	limit := len(parsed.Items)
	if feed.MaxItems > 0 && feed.MaxItems < limit {
		limit = feed.MaxItems
	}

	items := make([]types.RawItem, 0, limit)
	for _, feedItem := range parsed.Items[:limit] {
		if feedItem == nil {
			continue
		}
		items = append(items, r.convertToItem(feedItem, parsed.Title, feed.Name))
	}

	return items, nil
}

func (r *Reader) convertToItem(feedItem *gofeed.Item, feedTitle, feedName string) types.RawItem {
	itemID := feedItem.GUID
	if itemID == "" {
		itemID = feedItem.Link
	}

	description := feedItem.Description
	if description == "" && feedItem.Content != "" {
		description = feedItem.Content
	}
	description = utils.StripHTML(description)
	if len([]rune(description)) > maxDescriptionLength {
		description = utils.Truncate(description, maxDescriptionLength-3) + "..."
	}

	author := ""
	if feedItem.Author != nil {
		author = feedItem.Author.Name
		if author == "" {
			author = feedItem.Author.Email
		}
	}

	metadata := map[string]interface{}{
		"feed":      feedTitle,
		"feed_name": feedName,
		"author":    author,
	}

	if feedItem.PublishedParsed != nil {
		metadata["published"] = feedItem.PublishedParsed.Format(time.RFC3339)
	} else if feedItem.UpdatedParsed != nil {
		metadata["published"] = feedItem.UpdatedParsed.Format(time.RFC3339)
	}

	if len(feedItem.Categories) > 0 {
		metadata["categories"] = feedItem.Categories
	}

	if feedItem.Custom != nil {
		if comments, ok := feedItem.Custom["comments"]; ok {
			metadata["comments"] = comments
		}
	}

	return types.RawItem{
		SourceItemID: sanitizeID(itemID),
		Provider:     r.provider,
		Category:     r.category,
		Title:        feedItem.Title,
		Excerpt:      description,
		ThumbnailURL: imageOf(feedItem),
		CanonicalURL: feedItem.Link,
		Metadata:     metadata,
	}
}

func imageOf(feedItem *gofeed.Item) string {
	if feedItem.Image != nil && feedItem.Image.URL != "" {
		return feedItem.Image.URL
	}
	for _, enc := range feedItem.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func sanitizeID(id string) string {
	id = strings.ReplaceAll(id, "://", "_")
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, "?", "_")
	id = strings.ReplaceAll(id, "&", "_")
	id = strings.ReplaceAll(id, "=", "_")
	id = strings.ReplaceAll(id, "#", "_")
	id = strings.ReplaceAll(id, " ", "_")

	if len(id) > 200 {
		id = id[:200]
	}

	return id
}
