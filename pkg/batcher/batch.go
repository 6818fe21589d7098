// Package batcher groups PagingStates that are ready for another fetch into
// batches by a caller-supplied key, and hands completed batches back to the
// scheduler in either an unspecified order or ascending key order (spec.md §4.3).
package batcher

import "github.com/fenwicklabs/pagesched/pkg/pagestate"

// Status is a Batch's place in its lifecycle.
type Status int

const (
	// Forming means the batch has fewer than its configured maximum members.
	Forming Status = iota
	// Ready means the batch reached its maximum size, or was force-flushed,
	// and is waiting for a dispatch slot.
	Ready
	// InFlight means the batch has been handed to the executor.
	InFlight
)

func (s Status) String() string {
	switch s {
	case Forming:
		return "forming"
	case Ready:
		return "ready"
	case InFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

// Batch is a transient grouping of same-keyed PagingStates dispatched
// together to one fetch call.
type Batch[K comparable] struct {
	Key     K
	Members []*pagestate.State
	Status  Status
}
