package utils

func FilterArray[T any](input []T, predicate func(T) bool) []T {
	filtered := make([]T, 0)
	for _, item := range input {
		if predicate(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Take returns at most n leading elements. A non-positive n means no bound.
func Take[T any](input []T, n int) []T {
	if n <= 0 || len(input) <= n {
		return input
	}
	return input[:n]
}

// Interleave merges lists index-major: the first element of every list,
// then the second of every list, and so on, skipping exhausted lists.
func Interleave[T any](lists [][]T) []T {
	total, longest := 0, 0
	for _, l := range lists {
		total += len(l)
		longest = max(longest, len(l))
	}

	merged := make([]T, 0, total)
	for i := 0; i < longest; i++ {
		for _, l := range lists {
			if i < len(l) {
				merged = append(merged, l[i])
			}
		}
	}

	return merged
}
