// Package availability decides whether a fetched product page shows the item as purchasable.
//
// Classification is a case-insensitive regular-expression search over the raw
// page markup. The generic rule set lets any negative pattern (sold out,
// "notify me", pre-order banners) override every positive one; host rules can
// replace it for shop templates where free-text labels lie.
package availability

import (
	"git.home.luguber.info/inful/restockwatch/internal/foundation"
)

// State is the binary availability of a target at one point in time.
type State string

const (
	Available    State = "available"
	NotAvailable State = "not_available"
)

// Unknown is the display label for a target that has never been observed.
// It is not a State and is never persisted.
const Unknown = "unknown"

// Valid reports whether s is one of the two persisted states.
func (s State) Valid() bool {
	return s == Available || s == NotAvailable
}

// ParseState converts a stored string back into a State.
func ParseState(raw string) (State, bool) {
	s := State(raw)
	return s, s.Valid()
}

// Observed is the last known state of a target; None means never seen.
type Observed = foundation.Option[State]

// Seen wraps a known state.
func Seen(s State) Observed {
	return foundation.Some(s)
}

// NeverSeen is the lookup result for an absent target.
func NeverSeen() Observed {
	return foundation.None[State]()
}

// Label renders an Observed for logs and CLI output.
func Label(o Observed) string {
	if s, ok := o.Get(); ok {
		return string(s)
	}
	return Unknown
}

// WasAvailable reports whether the observation is a known Available.
func WasAvailable(o Observed) bool {
	return o.Or(NotAvailable) == Available
}
