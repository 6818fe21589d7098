// Package frontend provides blocking wrappers over pkg/scheduler that seed a
// finite collection of entities, drive them to completion, and return a
// collected result (spec.md §4.6, §6). They exist solely to bridge the
// streaming core to batch callers; the design lives in pkg/scheduler.
package frontend

import (
	"context"

	"github.com/fenwicklabs/pagesched/pkg/pagestate"
)

// Seed identifies one entity to paginate: its entity type and opaque id. A
// nil ID is valid and distinct (spec.md §4.1).
type Seed struct {
	EntityType string
	ID         any
}

// runner is the subset of *scheduler.Scheduler[K] the front-ends need. It is
// defined here, rather than importing pkg/scheduler's generic type directly,
// so Paginate works uniformly regardless of the caller's batch-key type K.
type runner interface {
	Start(ctx context.Context, params any) (chan<- *pagestate.State, <-chan *pagestate.State)
}

// Paginate seeds the scheduler with one PagingState per seed, closes the
// input stream once all seeds are sent, and blocks until every state -
// including any the parser spawns along the way - reaches a terminal cursor
// or exception. It returns every emitted state (spec.md §4.6, "paginate").
//
// If any returned state carries an Exception, Paginate returns the first one
// encountered (in output order) alongside the full result slice, matching
// spec.md §7's "the blocking front-ends are the only place errors become
// exceptions".
func Paginate(ctx context.Context, sched runner, params any, seeds []Seed) ([]*pagestate.State, error) {
	input, output := sched.Start(ctx, params)

	go func() {
		defer close(input)
		for _, sd := range seeds {
			select {
			case input <- pagestate.New(sd.EntityType, sd.ID):
			case <-ctx.Done():
				return
			}
		}
	}()

	var results []*pagestate.State
	var firstErr error
	for st := range output {
		results = append(results, st)
		if st.Exception != nil && firstErr == nil {
			firstErr = st.Exception
		}
	}
	return results, firstErr
}

// PaginateCollection is Paginate specialized for seeds that share a single
// entity type (spec.md §4.6, "paginate_coll"). Spawned states from the
// parser are silently ignored in the returned slice - a caller that wants
// spawns should use Paginate directly - and the result is a list of items
// arrays in the same order as ids, per spec.md §4.6 and §8 property 7.
//
// The returned slice has exactly one entry per id in ids, even if an id's
// fetch failed (its entry holds whatever items were accumulated before the
// failure; the error is reported in the second return value, same
// first-terminal-error rule as Paginate).
func PaginateCollection(ctx context.Context, sched runner, params any, entityType string, ids []any) ([][]any, error) {
	seeds := make([]Seed, len(ids))
	for i, id := range ids {
		seeds[i] = Seed{EntityType: entityType, ID: id}
	}

	states, err := Paginate(ctx, sched, params, seeds)
	if err != nil {
		// err is still reported, but we still assemble whatever partial
		// results exist below, per spec.md §7 "user-visible failure".
	}

	byID := make(map[any][]any, len(ids))
	for _, st := range states {
		if st.EntityType != entityType {
			continue // a spawned state of a different type; ignored here
		}
		byID[st.ID] = st.Items
	}

	ordered := make([][]any, len(ids))
	for i, id := range ids {
		ordered[i] = byID[id]
	}
	return ordered, err
}

// PaginateOne is PaginateCollection specialized for a single id
// (spec.md §4.6, "paginate_one"). It returns that id's accumulated items.
func PaginateOne(ctx context.Context, sched runner, params any, entityType string, id any) ([]any, error) {
	all, err := PaginateCollection(ctx, sched, params, entityType, []any{id})
	return all[0], err
}
