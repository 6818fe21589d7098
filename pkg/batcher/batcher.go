package batcher

import (
	"sort"

	"github.com/fenwicklabs/pagesched/pkg/pagestate"
)

// KeyFunc computes a batch's identity from a state about to be added.
type KeyFunc[K comparable] func(*pagestate.State) K

// LessFunc orders two keys. Required when sorted dispatch is enabled; nil
// otherwise.
type LessFunc[K comparable] func(a, b K) bool

// Batcher accepts PagingStates as they become ready for (another) fetch and
// hands back complete batches. An unordered Batcher (less == nil) returns
// any Ready batch; a sorted Batcher always returns the smallest-keyed one
// among Ready (PopReady) or Forming (ForceFlush) candidates (spec.md §4.3).
type Batcher[K comparable] struct {
	maxItems int
	keyFunc  KeyFunc[K]
	less     LessFunc[K]
	batches  map[K]*Batch[K]
	// keys holds the identities of all live (non-empty) batches. When less
	// is set it is kept sorted ascending via insertion search, so PopReady
	// and ForceFlush can scan it front-to-back for the smallest match; there
	// is no third-party ordered map in the retrieval pack, so this is a
	// stdlib (sort.Search) part rather than an imported data structure.
	keys []K
}

// New constructs a Batcher. maxItems below 1 is treated as 1 (spec.md §4.3
// invariant: max_items ≥ 1). less may be nil for unordered dispatch.
func New[K comparable](keyFunc KeyFunc[K], maxItems int, less LessFunc[K]) *Batcher[K] {
	if maxItems < 1 {
		maxItems = 1
	}
	return &Batcher[K]{
		maxItems: maxItems,
		keyFunc:  keyFunc,
		less:     less,
		batches:  make(map[K]*Batch[K]),
	}
}

// Sorted reports whether this Batcher dispatches in ascending key order.
func (b *Batcher[K]) Sorted() bool { return b.less != nil }

// Add appends a state to the batch for its key, creating one if needed, and
// marks the batch Ready once it reaches maxItems.
func (b *Batcher[K]) Add(s *pagestate.State) {
	k := b.keyFunc(s)
	batch, ok := b.batches[k]
	if !ok {
		batch = &Batch[K]{Key: k, Status: Forming}
		b.batches[k] = batch
		b.insertKey(k)
	}
	batch.Members = append(batch.Members, s)
	if len(batch.Members) >= b.maxItems {
		batch.Status = Ready
	}
}

// PopReady removes and returns a Ready batch, if any (spec.md §4.3).
func (b *Batcher[K]) PopReady() (*Batch[K], bool) {
	return b.pop(Ready)
}

// ForceFlush promotes exactly one non-empty Forming batch to Ready and
// returns it, used by the scheduler's idle timeout (spec.md §4.5).
func (b *Batcher[K]) ForceFlush() (*Batch[K], bool) {
	k, ok := b.find(Forming)
	if !ok {
		return nil, false
	}
	batch := b.batches[k]
	batch.Status = Ready
	return batch, true
}

// Empty reports whether no batches contain any members.
func (b *Batcher[K]) Empty() bool {
	return len(b.batches) == 0
}

func (b *Batcher[K]) pop(want Status) (*Batch[K], bool) {
	k, ok := b.find(want)
	if !ok {
		return nil, false
	}
	batch := b.batches[k]
	delete(b.batches, k)
	b.removeKey(k)
	return batch, true
}

func (b *Batcher[K]) find(want Status) (K, bool) {
	var zero K
	if b.Sorted() {
		for _, k := range b.keys {
			if b.batches[k].Status == want {
				return k, true
			}
		}
		return zero, false
	}
	for k, batch := range b.batches {
		if batch.Status == want {
			return k, true
		}
	}
	return zero, false
}

func (b *Batcher[K]) insertKey(k K) {
	if !b.Sorted() {
		b.keys = append(b.keys, k)
		return
	}
	i := sort.Search(len(b.keys), func(i int) bool { return !b.less(b.keys[i], k) })
	b.keys = append(b.keys, k)
	copy(b.keys[i+1:], b.keys[i:])
	b.keys[i] = k
}

func (b *Batcher[K]) removeKey(k K) {
	for i, kk := range b.keys {
		if kk == k {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			return
		}
	}
}
