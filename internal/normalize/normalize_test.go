package normalize_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedloom/internal/normalize"
	"feedloom/internal/types"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validRaw() types.RawItem {
	return types.RawItem{
		SourceItemID: "12345",
		Provider:     "wikipedia",
		Category:     types.CategoryArticle,
		Title:        "  Alan   Turing ",
		Excerpt:      "Alan Turing was an English mathematician,\n computer scientist and logician.",
		CanonicalURL: "https://en.wikipedia.org/?curid=12345",
		Metadata:     map[string]interface{}{"pageid": 12345},
	}
}

func TestNormalizeValidItem(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	item, err := normalize.New(50).Normalize(raw, now)
	require.NoError(t, err)

	assert.Equal(t, "Alan Turing", item.Title)
	assert.Equal(t, "Alan Turing was an English mathematician, computer scientist and logician.", item.Excerpt)
	assert.Equal(t, now, item.FetchedAt)
	assert.Equal(t, types.ItemKey{Provider: "wikipedia", SourceItemID: "12345"}, item.Key())

	item.Metadata["changed"] = true
	_, leaked := raw.Metadata["changed"]
	assert.False(t, leaked)
}

func TestNormalizeRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*types.RawItem)
		reason string
	}{
		{"missing id", func(r *types.RawItem) { r.SourceItemID = "  " }, normalize.ReasonMissingID},
		{"missing provider", func(r *types.RawItem) { r.Provider = "" }, normalize.ReasonMissingProvider},
		{"bad category", func(r *types.RawItem) { r.Category = "podcast" }, normalize.ReasonBadCategory},
		{"empty title", func(r *types.RawItem) { r.Title = "" }, normalize.ReasonShortTitle},
		{"three char title", func(r *types.RawItem) { r.Title = " Abc " }, normalize.ReasonShortTitle},
		{"short excerpt", func(r *types.RawItem) { r.Excerpt = "Too short." }, normalize.ReasonShortExcerpt},
		{"missing excerpt", func(r *types.RawItem) { r.Excerpt = "" }, normalize.ReasonShortExcerpt},
		{"missing url", func(r *types.RawItem) { r.CanonicalURL = "" }, normalize.ReasonMissingURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			_, err := normalize.New(50).Normalize(raw, now)
			require.Error(t, err)

			var rejected *types.RejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tt.reason, rejected.Reason)
		})
	}
}

func TestFourCharTitleIsAccepted(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.Title = "Abcd"

	_, err := normalize.New(50).Normalize(raw, now)
	assert.NoError(t, err)
}

// Every raw item whose excerpt is under the minimum is rejected unless the
// provider is exempt.
func TestExcerptFloor(t *testing.T) {
	t.Parallel()

	n := normalize.New(50, "github")

	for length := 0; length <= 60; length++ {
		raw := validRaw()
		raw.Excerpt = strings.Repeat("x", length)

		_, err := n.Normalize(raw, now)
		if length < 50 {
			var rejected *types.RejectedError
			assert.ErrorAs(t, err, &rejected, "length %d", length)
		} else {
			assert.NoError(t, err, "length %d", length)
		}

		raw.Provider = "github"
		raw.Category = types.CategoryRepository
		_, err = n.Normalize(raw, now)
		assert.NoError(t, err, "exempt length %d", length)
	}
}

func TestNormalizeAppliesNFC(t *testing.T) {
	t.Parallel()

	raw := validRaw()
	raw.Title = "Cafe\u0301 culture"

	item, err := normalize.New(0).Normalize(raw, now)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9 culture", item.Title)
}

func TestNormalizeAll(t *testing.T) {
	t.Parallel()

	short := validRaw()
	short.SourceItemID = "2"
	short.Excerpt = "short"

	items, rejected := normalize.New(50).NormalizeAll([]types.RawItem{validRaw(), short, validRaw()}, now)

	assert.Len(t, items, 2)
	assert.Equal(t, 1, rejected)
}
