package sources

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"feedloom/internal/transport"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const maxExtractedExcerpt = 600

// articleExtractor fills thin feed entries from the linked article page.
type articleExtractor struct {
	transport *transport.Transport
	provider  string
	minLength int
}

func (e *articleExtractor) enrich(ctx context.Context, item types.RawItem) (types.RawItem, error) {
	page, err := url.Parse(item.CanonicalURL)
	if err != nil || (page.Scheme != "http" && page.Scheme != "https") {
		return item, nil
	}

	resp, err := e.transport.Get(ctx, e.provider, page.String(), http.Header{"Accept": {"text/html"}})
	if err != nil {
		return item, err
	}

	article, err := readability.FromReader(bytes.NewReader(resp.Body), page)
	if err != nil {
		return item, types.NewParseError(e.provider, "html", err)
	}

	excerpt := utils.CollapseWhitespace(article.Excerpt)
	if len([]rune(excerpt)) < e.minLength {
		excerpt = utils.Truncate(utils.CollapseWhitespace(article.TextContent), maxExtractedExcerpt)
	}
	if strings.TrimSpace(excerpt) != "" {
		item.Excerpt = excerpt
	}
	if item.ThumbnailURL == "" && article.Image != "" {
		item.ThumbnailURL = article.Image
	}

	return item, nil
}

// enrichAll only touches items whose excerpt is below the minimum length.
// A page that cannot be read leaves its item as it was.
func (e *articleExtractor) enrichAll(ctx context.Context, items []types.RawItem, logger *slog.Logger) []types.RawItem {
	for i, item := range items {
		if len([]rune(strings.TrimSpace(item.Excerpt))) >= e.minLength {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		enriched, err := e.enrich(ctx, item)
		if err != nil {
			logger.Debug("Article extraction failed", "url", item.CanonicalURL, "error", err)
			continue
		}
		items[i] = enriched
	}
	return items
}
