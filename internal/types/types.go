package types

import (
	"fmt"
	"maps"
	"time"
)

type Category string

const (
	CategoryArticle       Category = "article"
	CategoryBook          Category = "book"
	CategoryTextbook      Category = "textbook"
	CategoryResearchPaper Category = "research_paper"
	CategoryBlogPost      Category = "blog_post"
	CategoryRepository    Category = "repository"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryArticle, CategoryBook, CategoryTextbook, CategoryResearchPaper, CategoryBlogPost, CategoryRepository:
		return true
	}
	return false
}

// RawItem is what a provider extracts from its native response, before
// validation. Only the normalizer turns it into a ContentItem.
type RawItem struct {
	SourceItemID string
	Provider     string
	Category     Category
	Title        string
	Excerpt      string
	ThumbnailURL string
	CanonicalURL string
	Metadata     map[string]interface{}
}

// ContentItem is the canonical, provider-agnostic record returned by the
// pipeline. It is passed by value; corrections produce a new value.
type ContentItem struct {
	SourceItemID string                 `json:"sourceItemId"`
	Provider     string                 `json:"provider"`
	Category     Category               `json:"category"`
	Title        string                 `json:"title"`
	Excerpt      string                 `json:"excerpt,omitempty"`
	ThumbnailURL string                 `json:"thumbnailUrl,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CanonicalURL string                 `json:"canonicalUrl"`
	FetchedAt    time.Time              `json:"fetchedAt"`
}

// ItemKey is the natural dedup key of a content item.
type ItemKey struct {
	Provider     string
	SourceItemID string
}

func (k ItemKey) String() string {
	return fmt.Sprintf("%s:%s", k.Provider, k.SourceItemID)
}

func (c ContentItem) Key() ItemKey {
	return ItemKey{Provider: c.Provider, SourceItemID: c.SourceItemID}
}

func (c ContentItem) WithThumbnail(url string) ContentItem {
	out := c
	out.ThumbnailURL = url
	out.Metadata = maps.Clone(c.Metadata)
	return out
}

