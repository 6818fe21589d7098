package scheduler

import "errors"

// ErrUnknownDispatch is returned by a Registry-backed default FetchFn when no
// handler has been registered for a batch's entity type (spec.md §7,
// "UnknownDispatch"). It surfaces to callers wrapped as an ordinary
// FetchFailure, since the core treats it exactly like any other fetch error.
var ErrUnknownDispatch = errors.New("scheduler: no fetch handler registered for entity type")

// ErrNoProgress is the synthetic error attached to a state by the optional
// no-progress guard (spec.md §9 open question) when the same cursor value
// is returned on consecutive fetches.
var ErrNoProgress = errors.New("scheduler: fetch returned the same cursor twice in a row")
