package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"feedloom/internal/storage"
)

var feedContentTypes = map[string]string{
	TypeRSS:  "application/rss+xml; charset=utf-8",
	TypeAtom: "application/atom+xml; charset=utf-8",
	TypeJSON: "application/feed+json; charset=utf-8",
}

func (s *Server) handleFeed(feedType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := NewCacheKey(s.config.Name, feedType)

		body, ok := s.feedCache.Get(key)
		if !ok {
			contents, err := s.store.Contents().ListRecent(r.Context(), s.config.FeedSize)
			if err != nil {
				s.logger.Error("Failed to list feed contents", "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to load feed")
				return
			}

			body, err = render(s.buildFeed(contents, baseURL(r)), feedType)
			if err != nil {
				s.logger.Error("Failed to render feed", "type", feedType, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to render feed")
				return
			}
			s.feedCache.Set(key, body)
		}

		w.Header().Set("Content-Type", feedContentTypes[feedType])
		w.Header().Set("Cache-Control", "public, max-age=300")
		fmt.Fprint(w, body)
	}
}

func render(feed *feeds.Feed, feedType string) (string, error) {
	switch feedType {
	case TypeRSS:
		return feed.ToRss()
	case TypeAtom:
		return feed.ToAtom()
	case TypeJSON:
		return feed.ToJSON()
	}
	return "", fmt.Errorf("unknown feed type %s", feedType)
}

func (s *Server) buildFeed(contents []storage.StoredContent, base string) *feeds.Feed {
	items := make([]*feeds.Item, 0, len(contents))

	for _, c := range contents {
		item := &feeds.Item{
			Id:          fmt.Sprintf("%s:%s", c.Provider, c.SourceItemID),
			Title:       c.Title,
			Link:        &feeds.Link{Href: c.CanonicalURL},
			Description: c.Excerpt,
			Author:      &feeds.Author{Name: c.Provider},
			Created:     c.FetchedAt,
		}
		if c.ThumbnailURL != "" {
			item.Enclosure = &feeds.Enclosure{Url: c.ThumbnailURL, Type: imageType(c.ThumbnailURL), Length: "0"}
		}
		items = append(items, item)
	}

	return &feeds.Feed{
		Title:       fmt.Sprintf("%s feed", s.config.Name),
		Link:        &feeds.Link{Href: base + "/"},
		Description: "Articles, books, papers and repositories gathered by " + s.config.Name,
		Author:      &feeds.Author{Name: s.config.Name},
		Created:     time.Now().UTC(),
		Items:       items,
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func imageType(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	}
	return "image/jpeg"
}
