package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"feedloom/internal/transport"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const devToAPI = "https://dev.to"

// DevTo serves the "blogs" provider from the dev.to articles API. Search
// maps the term onto a dev.to tag since the public API has no text search.
type DevTo struct {
	base
}

type devToArticle struct {
	ID                   int64    `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	URL                  string   `json:"url"`
	CoverImage           string   `json:"cover_image"`
	SocialImage          string   `json:"social_image"`
	TagList              []string `json:"tag_list"`
	PublishedAt          string   `json:"published_at"`
	ReadingTimeMinutes   int      `json:"reading_time_minutes"`
	PublicReactionsCount int      `json:"public_reactions_count"`
	User                 struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
}

func NewDevTo(t *transport.Transport, opts Options) *DevTo {
	return &DevTo{
		base: newBase(t, opts, "blogs", types.CategoryBlogPost, devToAPI, 10),
	}
}

func devToTag(term string) string {
	return strings.ReplaceAll(utils.Slugify(term), "-", "")
}

func (d *DevTo) Fetch(ctx context.Context, searchTerm string) ([]types.RawItem, error) {
	params := url.Values{
		"per_page": {strconv.Itoa(d.maxItems)},
	}

	if term, ok := searching(searchTerm); ok {
		params.Set("tag", devToTag(term))
	} else {
		params.Set("top", "1")
	}

	headers := http.Header{"Accept": {"application/json"}}

	var articles []devToArticle
	if err := d.getJSON(ctx, d.baseURL+"/api/articles?"+params.Encode(), headers, &articles); err != nil {
		return nil, fmt.Errorf("failed to fetch dev.to articles: %w", err)
	}

	items := make([]types.RawItem, 0, len(articles))
	for _, article := range utils.Take(articles, d.maxItems) {
		item := d.raw(strconv.FormatInt(article.ID, 10))
		item.Title = article.Title
		item.Excerpt = utils.StripHTML(article.Description)
		item.CanonicalURL = article.URL
		item.ThumbnailURL = article.CoverImage
		if item.ThumbnailURL == "" {
			item.ThumbnailURL = article.SocialImage
		}
		item.Metadata = map[string]interface{}{
			"author":         article.User.Name,
			"username":       article.User.Username,
			"tags":           article.TagList,
			"published_at":   article.PublishedAt,
			"reading_time":   article.ReadingTimeMinutes,
			"reaction_count": article.PublicReactionsCount,
		}

		items = append(items, item)
	}

	return items, nil
}
