// Package foundation holds small generic building blocks shared by the other packages.
package foundation

// Option is a value that may be absent. Lookups with a meaningful
// "never seen" answer return an Option instead of a sentinel T.
type Option[T any] struct {
	v  T
	ok bool
}

// Some wraps v.
func Some[T any](v T) Option[T] { return Option[T]{v: v, ok: true} }

// None is the empty Option.
func None[T any]() Option[T] { return Option[T]{} }

func (o Option[T]) IsSome() bool { return o.ok }
func (o Option[T]) IsNone() bool { return !o.ok }

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.v, o.ok }

// Or returns the value, or fallback when absent.
func (o Option[T]) Or(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.v
}
