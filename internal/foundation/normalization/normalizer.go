// Package normalization maps loosely written configuration strings onto typed enums.
package normalization

import (
	"slices"
	"strings"
)

// Normalizer resolves case-insensitive, whitespace-tolerant spellings of an enum.
type Normalizer[T comparable] struct {
	values   map[string]T
	fallback T
}

// NewNormalizer builds a normalizer; fallback is returned for unknown input.
func NewNormalizer[T comparable](values map[string]T, fallback T) *Normalizer[T] {
	n := &Normalizer[T]{values: make(map[string]T, len(values)), fallback: fallback}
	for k, v := range values {
		n.values[clean(k)] = v
	}
	return n
}

// Normalize returns the matching value or the fallback.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.Lookup(raw); ok {
		return v
	}
	return n.fallback
}

// Lookup reports whether raw names a known value.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	v, ok := n.values[clean(raw)]
	return v, ok
}

// Keys lists accepted spellings, sorted, for error messages.
func (n *Normalizer[T]) Keys() []string {
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
