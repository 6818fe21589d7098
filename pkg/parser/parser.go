// Package parser defines the contract a caller implements to turn one fetch
// response into cursor advances, new items, and spawned pagination work
// (spec.md §4.2).
package parser

import (
	"github.com/fenwicklabs/pagesched/pkg/pagestate"
)

// Result is what a ResultParser returns for one batch's response: a cursor
// per state in the batch (absence means "no further pages", i.e. Done), an
// items slice per state (absence means no items appended this round), and
// any freshly spawned states to inject into the scheduler.
type Result struct {
	Cursors map[pagestate.Key]pagestate.Cursor
	Items   map[pagestate.Key][]any
	Spawns  []*pagestate.State
}

// ResultParser extracts cursor/items/spawn information from one fetch
// response, given the PagingStates that were sent in that batch.
type ResultParser interface {
	Parse(response any, members []*pagestate.State) (Result, error)
}

// ResultParserFunc adapts a plain function to ResultParser.
type ResultParserFunc func(response any, members []*pagestate.State) (Result, error)

// Parse implements ResultParser.
func (f ResultParserFunc) Parse(response any, members []*pagestate.State) (Result, error) {
	return f(response, members)
}
