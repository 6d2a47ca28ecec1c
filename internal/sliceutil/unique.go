// Package sliceutil holds small generic slice helpers.
package sliceutil

// Unique returns items without repeats, keeping first occurrences in order.
func Unique[T comparable](items []T) []T {
	return UniqueBy(items, func(v T) T { return v })
}

// UniqueBy is Unique with equality decided by key.
// The result never aliases items.
func UniqueBy[T any, K comparable](items []T, key func(T) K) []T {
	out := make([]T, 0, len(items))
	seen := make(map[K]struct{}, len(items))
	for _, v := range items {
		k := key(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
