package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fenwicklabs/pagesched/pkg/batcher"
	"github.com/fenwicklabs/pagesched/pkg/executor"
	"github.com/fenwicklabs/pagesched/pkg/parser"
	"github.com/fenwicklabs/pagesched/pkg/pagestate"
)

// defaultIdleFlush is spec.md §4.5's fixed 100ms idle-flush interval. §9
// notes this is "treated as a constant but an implementation may expose it
// as config" — this repo exposes it via WithIdleFlush, defaulting here.
const defaultIdleFlush = 100 * time.Millisecond

// EngineConfig is the scheduler's immutable-by-convention configuration
// (spec.md §3). K is the batch key type returned by BatchFn; it must be
// comparable, and additionally ordered (via BatchLess) to use sorted
// dispatch.
type EngineConfig[K comparable] struct {
	Parser   parser.ResultParser
	FetchFn  FetchFunc
	Registry *Registry
	Runner   executor.AsyncRunner
	Logger   zerolog.Logger

	MaxConcurrency int
	ResultBuf      int

	BatchFn   batcher.KeyFunc[K]
	BatchLess batcher.LessFunc[K]
	MaxItems  int

	IdleFlush     time.Duration
	ProgressGuard int
}

// NewConfig builds a base EngineConfig with the required ResultParser and a
// batch key function, and spec.md §3's defaults: MaxConcurrency 1,
// ResultBuf 100, MaxItems 1, unordered dispatch, a fresh empty Registry as
// FetchFn, the platform-standard goroutine-per-task runner, a no-op
// logger, and the 100ms idle flush interval.
func NewConfig[K comparable](p parser.ResultParser, batchFn batcher.KeyFunc[K]) *EngineConfig[K] {
	registry := NewRegistry()
	return &EngineConfig[K]{
		Parser:         p,
		FetchFn:        registry.Dispatch,
		Registry:       registry,
		Runner:         executor.GoRunner{},
		Logger:         zerolog.Nop(),
		MaxConcurrency: 1,
		ResultBuf:      100,
		BatchFn:        batchFn,
		MaxItems:       1,
		IdleFlush:      defaultIdleFlush,
	}
}

// NewByEntityType builds an EngineConfig whose batch key is the state's
// EntityType — spec.md §3's default batch_fn.
func NewByEntityType(p parser.ResultParser) *EngineConfig[string] {
	return NewConfig[string](p, func(s *pagestate.State) string { return s.EntityType })
}

// WithBatcher configures batching: whether dispatch is sorted by ascending
// key (less must be non-nil when sorted is true), the maximum batch size,
// and (optionally) a replacement batch-key function.
func (c *EngineConfig[K]) WithBatcher(sorted bool, maxItems int, batchFn batcher.KeyFunc[K], less batcher.LessFunc[K]) *EngineConfig[K] {
	if batchFn != nil {
		c.BatchFn = batchFn
	}
	if maxItems > 0 {
		c.MaxItems = maxItems
	}
	if sorted {
		c.BatchLess = less
	} else {
		c.BatchLess = nil
	}
	return c
}

// WithConcurrency sets the maximum number of in-flight batches.
func (c *EngineConfig[K]) WithConcurrency(n int) *EngineConfig[K] {
	if n > 0 {
		c.MaxConcurrency = n
	}
	return c
}

// WithResultBuf sets the output stream's buffer capacity.
func (c *EngineConfig[K]) WithResultBuf(n int) *EngineConfig[K] {
	if n >= 0 {
		c.ResultBuf = n
	}
	return c
}

// WithFetchFn replaces the default Registry-based dispatch with a
// monolithic fetch function (spec.md §6, "Caller may bypass by supplying a
// monolithic fetch_fn").
func (c *EngineConfig[K]) WithFetchFn(fn FetchFunc) *EngineConfig[K] {
	c.FetchFn = fn
	c.Registry = nil
	return c
}

// WithItemsFn installs a parser shorthand for one-shot, non-paginated
// collections: every fetch is treated as final (cursor always Done) and its
// response is reduced to an item slice by fn, with no spawns. Equivalent to
// SingleStateParser(fn, func(any) any { return nil }, nil). This is the
// scheduler-side counterpart of spec.md §6's with_items_fn.
func (c *EngineConfig[K]) WithItemsFn(fn func(response any) []any) *EngineConfig[K] {
	c.Parser = parser.SingleStateParser(fn, func(any) any { return nil }, nil)
	return c
}

// WithRunner replaces the platform-standard async task runner.
func (c *EngineConfig[K]) WithRunner(r executor.AsyncRunner) *EngineConfig[K] {
	c.Runner = r
	return c
}

// WithLogger attaches a structured logger; the scheduler logs spawn
// collisions through it, and its executor logs failed fetch tasks
// (pkg/logging).
func (c *EngineConfig[K]) WithLogger(logger zerolog.Logger) *EngineConfig[K] {
	c.Logger = logger
	return c
}

// WithIdleFlush overrides the idle-flush interval (spec.md §9 open
// question).
func (c *EngineConfig[K]) WithIdleFlush(d time.Duration) *EngineConfig[K] {
	if d > 0 {
		c.IdleFlush = d
	}
	return c
}

// WithProgressGuard enables the optional no-progress guard (spec.md §9 open
// question, "not mandated"): a state that returns the same non-terminal
// cursor on n consecutive fetches is failed with ErrNoProgress instead of
// being re-dispatched forever. n <= 0 disables the guard (the default).
func (c *EngineConfig[K]) WithProgressGuard(n int) *EngineConfig[K] {
	c.ProgressGuard = n
	return c
}

