package rss

import (
	"context"
	"fmt"
	"os"
)

type SourceKind int

const (
	KindFeedURL SourceKind = iota
	KindOPMLFile
	KindOPMLURL
)

func (k SourceKind) String() string {
	switch k {
	case KindFeedURL:
		return "feed_url"
	case KindOPMLFile:
		return "opml_file"
	case KindOPMLURL:
		return "opml_url"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// SourceConfig names one entry of a feeds provider: a single feed URL, an
// OPML file on disk, or an OPML document served over HTTP.
type SourceConfig struct {
	Kind  SourceKind
	Value string
}

func (c SourceConfig) load(ctx context.Context, fetch FetchFunc) ([]Feed, error) {
	switch c.Kind {
	case KindFeedURL:
		return []Feed{{URL: c.Value, Name: feedName("", c.Value)}}, nil
	case KindOPMLFile:
		data, err := os.ReadFile(c.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to read OPML file: %w", err)
		}
		return ParseOPML(data)
	case KindOPMLURL:
		data, err := fetch(ctx, c.Value)
		if err != nil {
			return nil, err
		}
		return ParseOPML(data)
	}
	return nil, fmt.Errorf("unknown feed source kind: %s", c.Kind)
}

// Resolve expands every config into concrete feeds, dropping duplicate URLs.
// Each feed keeps at most maxItems entries per read.
func Resolve(ctx context.Context, fetch FetchFunc, configs []SourceConfig, maxItems int) ([]Feed, error) {
	seen := make(map[string]struct{})
	var feeds []Feed

	for _, cfg := range configs {
		loaded, err := cfg.load(ctx, fetch)
		if err != nil {
			return nil, fmt.Errorf("failed to load feeds from %s: %w", cfg.Value, err)
		}

		for _, f := range loaded {
			if _, dup := seen[f.URL]; dup {
				continue
			}
			seen[f.URL] = struct{}{}
			f.MaxItems = maxItems
			feeds = append(feeds, f)
		}
	}

	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds loaded")
	}

	return feeds, nil
}
