package pagestate

// Cursor is the three-state opaque pagination token described in spec.md
// §3: a state that has never been fetched, a state whose pagination is
// complete, or a state holding an opaque token for the next fetch.
//
// A tagged variant is used here instead of a nullable string so that
// "never fetched" and "done, cursor was null" can't be confused by a zero
// value the way two overloaded nil checks would.
type Cursor struct {
	kind  cursorKind
	value any
}

type cursorKind int

const (
	cursorNeverFetched cursorKind = iota
	cursorDone
	cursorNext
)

// NeverFetched is the initial cursor state: the PagingState has not been
// dispatched for a fetch yet.
func NeverFetched() Cursor {
	return Cursor{kind: cursorNeverFetched}
}

// Done is the terminal cursor state: the parser reported no further pages.
func Done() Cursor {
	return Cursor{kind: cursorDone}
}

// Next wraps an opaque, caller-defined token to be used on the following
// fetch. A nil token is equivalent to Done(), matching spec.md's "absence of
// a key means no further pages" rule for the parser's cursor map.
func Next(token any) Cursor {
	if token == nil {
		return Done()
	}
	return Cursor{kind: cursorNext, value: token}
}

// IsNeverFetched reports whether the state has not yet been dispatched.
func (c Cursor) IsNeverFetched() bool { return c.kind == cursorNeverFetched }

// IsDone reports whether pagination for this state is complete.
func (c Cursor) IsDone() bool { return c.kind == cursorDone }

// Token returns the opaque next-fetch token and whether one is present.
// ok is false for both NeverFetched and Done.
func (c Cursor) Token() (token any, ok bool) {
	if c.kind != cursorNext {
		return nil, false
	}
	return c.value, true
}

// Equal reports whether two cursors carry the same state and, for Next
// cursors, equal tokens by ==.
func (c Cursor) Equal(other Cursor) bool {
	if c.kind != other.kind {
		return false
	}
	if c.kind != cursorNext {
		return true
	}
	return c.value == other.value
}

func (c Cursor) String() string {
	switch c.kind {
	case cursorNeverFetched:
		return "never-fetched"
	case cursorDone:
		return "done"
	default:
		return "next"
	}
}
