// Package pagestate defines the per-entity pagination progress record the
// scheduler advances one fetch at a time.
package pagestate

// Key identifies a PagingState. The pair must be stable for the state's
// lifetime and unique among currently-live states (spec.md §4.1); a nil ID
// is a valid, distinct identifier for singleton collections such as
// "all accounts".
type Key struct {
	EntityType string
	ID         any
}

// State tracks one entity's pagination progress: how many pages have been
// fetched, the items accumulated so far, the cursor to use for the next
// fetch (or the signal that none is needed), and any terminal error.
//
// The zero value is not valid; use New. Only the scheduler mutates a State
// once it has been submitted — callers that keep a reference to a State
// after handing it to the scheduler must treat it as read-only.
type State struct {
	Key

	Pages     int
	Items     []any
	Cursor    Cursor
	Exception error
}

// New constructs an initial PagingState: zero pages fetched, no items, and
// a NeverFetched cursor (spec.md §4.1).
func New(entityType string, id any) *State {
	return &State{
		Key:    Key{EntityType: entityType, ID: id},
		Cursor: NeverFetched(),
	}
}

// Terminal reports whether this state will never be dispatched again: its
// cursor is Done, or it carries an Exception (spec.md §3 invariants).
func (s *State) Terminal() bool {
	return s.Cursor.IsDone() || s.Exception != nil
}

// appendItems appends a page's worth of items. Exposed only within this
// package; the scheduler is the sole mutator (spec.md §4.1).
func (s *State) appendItems(items []any) {
	s.Items = append(s.Items, items...)
}

// Advance applies one fetch round's outcome: append items, increment the
// page count, and set the next cursor (or Done). It is the only mutation
// path besides attaching a terminal Exception, and it is called exclusively
// by pkg/scheduler.
func (s *State) Advance(items []any, next Cursor) {
	s.appendItems(items)
	s.Pages++
	s.Cursor = next
}

// Fail attaches a terminal exception, preserving whatever items had already
// been accumulated (spec.md §7, "user-visible failure").
func (s *State) Fail(err error) {
	s.Exception = err
}

// Clone returns a copy of the state with its own Items slice (the items
// themselves are not copied), for handing a stable snapshot to a caller
// without exposing the scheduler's live pointer. pkg/frontend does not call
// it; it returns the emitted states themselves.
func (s *State) Clone() *State {
	items := make([]any, len(s.Items))
	copy(items, s.Items)
	return &State{
		Key:       s.Key,
		Pages:     s.Pages,
		Items:     items,
		Cursor:    s.Cursor,
		Exception: s.Exception,
	}
}
