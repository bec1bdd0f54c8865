package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterleaveSkipsExhaustedLists(t *testing.T) {
	t.Parallel()

	lists := [][]string{
		{"P0_0", "P0_1", "P0_2"},
		{"P1_0"},
		{"P2_0", "P2_1"},
	}

	assert.Equal(t, []string{"P0_0", "P1_0", "P2_0", "P0_1", "P2_1", "P0_2"}, Interleave(lists))
}

func TestInterleaveEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Interleave[int](nil))
	assert.Equal(t, []int{1, 2}, Interleave([][]int{{}, {1, 2}, nil}))
}

func TestFilterArray(t *testing.T) {
	t.Parallel()

	even := FilterArray([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	assert.Equal(t, []int{2, 4}, even)
}
