package util

// FindFirst returns the first element of s matching predicate.
func FindFirst[T any](s []T, predicate func(T) bool) (T, bool) {
	for _, v := range s {
		if predicate(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// CountBy tallies the elements of s by key. Elements whose key reports
// false are skipped.
func CountBy[T any, K comparable](s []T, key func(T) (K, bool)) map[K]int {
	counts := make(map[K]int)
	for _, v := range s {
		if k, ok := key(v); ok {
			counts[k]++
		}
	}
	return counts
}
