package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	t.Parallel()

	got := StripHTML("<p>Hello <b>world</b> &amp;\n\n friends</p>")
	assert.Equal(t, "Hello world & friends", got)
	assert.Equal(t, "", StripHTML(""))
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", CollapseWhitespace("  a\t\tb \n c  "))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

func TestTruncateCountsRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "machine-learning", Slugify("  Machine Learning! "))
	assert.Equal(t, "go", Slugify("Go"))
	assert.Equal(t, "c-sharp", Slugify("C -- sharp"))
}

func TestContainsFold(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsFold("RUST", "Learning rust", ""))
	assert.False(t, ContainsFold("rust", "Go", "Zig"))
	assert.True(t, ContainsFold("", "anything"))
}

func TestTakeBounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1, 2}, Take([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{1, 2, 3}, Take([]int{1, 2, 3}, 0))
}
