package parser

import (
	"github.com/fenwicklabs/pagesched/pkg/pagestate"
)

// StateResult is one entity's slice of a multi-state response: its items
// for this round and its next cursor (nil means "no further pages").
type StateResult struct {
	EntityType string
	ID         any
	Items      []any
	Cursor     any
}

// SingleStateParser builds a ResultParser for endpoints that page exactly
// one entity per fetch. It fails with ErrInvalidBatchSize if invoked on a
// batch with more than one member (spec.md §4.2).
//
// spawnsOf may be nil, in which case the parser never spawns new states.
func SingleStateParser(
	itemsOf func(response any) []any,
	cursorOf func(response any) any,
	spawnsOf func(response any) []*pagestate.State,
) ResultParser {
	return ResultParserFunc(func(response any, members []*pagestate.State) (Result, error) {
		if len(members) != 1 {
			return Result{}, ErrInvalidBatchSize
		}
		key := members[0].Key

		result := Result{
			Cursors: map[pagestate.Key]pagestate.Cursor{key: cursorToPaging(cursorOf(response))},
			Items:   map[pagestate.Key][]any{key: itemsOf(response)},
		}
		if spawnsOf != nil {
			result.Spawns = spawnsOf(response)
		}
		return result, nil
	})
}

// MultiStateParser builds a ResultParser for endpoints that page several
// entities in a single fetch. statesOf extracts one StateResult per
// entity mentioned in the response; entities in the batch that statesOf
// does not mention implicitly get empty items and a Done cursor
// (spec.md §4.2).
//
// spawnsOf may be nil, in which case the parser never spawns new states.
func MultiStateParser(
	statesOf func(response any) []StateResult,
	spawnsOf func(response any) []*pagestate.State,
) ResultParser {
	return ResultParserFunc(func(response any, members []*pagestate.State) (Result, error) {
		result := Result{
			Cursors: make(map[pagestate.Key]pagestate.Cursor, len(members)),
			Items:   make(map[pagestate.Key][]any, len(members)),
		}

		for _, m := range members {
			result.Cursors[m.Key] = pagestate.Done()
		}

		for _, sr := range statesOf(response) {
			key := pagestate.Key{EntityType: sr.EntityType, ID: sr.ID}
			result.Items[key] = sr.Items
			result.Cursors[key] = cursorToPaging(sr.Cursor)
		}

		if spawnsOf != nil {
			result.Spawns = spawnsOf(response)
		}
		return result, nil
	})
}

// cursorToPaging converts the caller-facing "nil means done" convention
// into the three-state Cursor the scheduler advances states with. A
// non-nil token always produces Next; callers that want to signal
// "never fetched" have no occasion to from inside a parser, since a
// parser only ever runs after a fetch occurred.
func cursorToPaging(token any) pagestate.Cursor {
	if token == nil {
		return pagestate.Done()
	}
	return pagestate.Next(token)
}
