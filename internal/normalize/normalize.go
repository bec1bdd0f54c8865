// Package normalize validates raw provider items and turns them into
// canonical content items. It does no I/O.
package normalize

import (
	"maps"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"feedloom/internal/types"
	"feedloom/internal/utils"
)

const (
	DefaultMinExcerptLength = 50

	// MinTitleLength is exclusive: a title must be longer than this.
	MinTitleLength = 3
)

const (
	ReasonMissingID       = "missing source item id"
	ReasonMissingProvider = "missing provider"
	ReasonShortTitle      = "title too short"
	ReasonShortExcerpt    = "excerpt too short"
	ReasonMissingURL      = "missing canonical url"
	ReasonBadCategory     = "unknown category"
)

type Normalizer struct {
	minExcerptLength int
	exempt           map[string]struct{}
}

// New returns a normalizer that requires excerpts of at least
// minExcerptLength characters, except for the named providers.
func New(minExcerptLength int, exemptProviders ...string) *Normalizer {
	if minExcerptLength < 0 {
		minExcerptLength = 0
	}

	exempt := make(map[string]struct{}, len(exemptProviders))
	for _, name := range exemptProviders {
		exempt[name] = struct{}{}
	}

	return &Normalizer{minExcerptLength: minExcerptLength, exempt: exempt}
}

func (n *Normalizer) MinExcerptLength() int {
	return n.minExcerptLength
}

func (n *Normalizer) Exempt(provider string) bool {
	_, ok := n.exempt[provider]
	return ok
}

// Normalize validates raw and returns the canonical item stamped with now.
// A failed validation returns a *types.RejectedError.
func (n *Normalizer) Normalize(raw types.RawItem, now time.Time) (types.ContentItem, error) {
	id := utils.CollapseWhitespace(raw.SourceItemID)
	if id == "" {
		return types.ContentItem{}, types.NewRejectedError(raw.Provider, raw.SourceItemID, ReasonMissingID)
	}
	if raw.Provider == "" {
		return types.ContentItem{}, types.NewRejectedError(raw.Provider, id, ReasonMissingProvider)
	}
	if !raw.Category.Valid() {
		return types.ContentItem{}, types.NewRejectedError(raw.Provider, id, ReasonBadCategory).
			WithDetail("category", string(raw.Category))
	}

	title := clean(raw.Title)
	if l := utf8.RuneCountInString(title); l <= MinTitleLength {
		return types.ContentItem{}, types.NewRejectedError(raw.Provider, id, ReasonShortTitle).
			WithDetail("length", l)
	}

	excerpt := clean(raw.Excerpt)
	if !n.Exempt(raw.Provider) {
		if l := utf8.RuneCountInString(excerpt); l < n.minExcerptLength {
			return types.ContentItem{}, types.NewRejectedError(raw.Provider, id, ReasonShortExcerpt).
				WithDetail("length", l).
				WithDetail("min", n.minExcerptLength)
		}
	}

	canonicalURL := utils.CollapseWhitespace(raw.CanonicalURL)
	if canonicalURL == "" {
		return types.ContentItem{}, types.NewRejectedError(raw.Provider, id, ReasonMissingURL)
	}

	return types.ContentItem{
		SourceItemID: id,
		Provider:     raw.Provider,
		Category:     raw.Category,
		Title:        title,
		Excerpt:      excerpt,
		ThumbnailURL: utils.CollapseWhitespace(raw.ThumbnailURL),
		Metadata:     maps.Clone(raw.Metadata),
		CanonicalURL: canonicalURL,
		FetchedAt:    now.UTC(),
	}, nil
}

// NormalizeAll keeps the items that pass validation, in order, and reports
// how many were rejected.
func (n *Normalizer) NormalizeAll(raws []types.RawItem, now time.Time) ([]types.ContentItem, int) {
	items := make([]types.ContentItem, 0, len(raws))
	rejected := 0

	for _, raw := range raws {
		item, err := n.Normalize(raw, now)
		if err != nil {
			rejected++
			continue
		}
		items = append(items, item)
	}

	return items, rejected
}

func clean(s string) string {
	return norm.NFC.String(utils.CollapseWhitespace(s))
}
