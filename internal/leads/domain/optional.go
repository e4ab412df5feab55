package domain

import "strings"

// Optional holds a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Text is present only when s has non-whitespace content.
func Text(s string) Optional[string] {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return None[string]()
	}
	return Some(trimmed)
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the value or fallback when absent.
func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}
