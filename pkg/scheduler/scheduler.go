package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fenwicklabs/pagesched/pkg/batcher"
	"github.com/fenwicklabs/pagesched/pkg/executor"
	"github.com/fenwicklabs/pagesched/pkg/pagestate"
)

// Scheduler is the long-lived coordinator built from an EngineConfig. One
// Scheduler instance runs one Start call's worth of work; it is not reused
// across independent runs.
type Scheduler[K comparable] struct {
	cfg     *EngineConfig[K]
	batcher *batcher.Batcher[K]
	exec    *executor.Executor
	metrics *metrics

	live     map[pagestate.Key]*pagestate.State
	progress map[pagestate.Key]progressEntry
}

type progressEntry struct {
	token any
	count int
}

// batchResult is what a completed fetch task reports back to the
// coordinator goroutine; it carries everything needed to re-attribute the
// outcome to the batch's members without touching shared state from the
// executor's own goroutine.
type batchResult struct {
	key      K
	members  []*pagestate.State
	response any
	err      error
}

// New constructs a Scheduler from cfg. Call Start to run it.
func New[K comparable](cfg *EngineConfig[K]) *Scheduler[K] {
	m := newMetrics()
	return &Scheduler[K]{
		cfg:      cfg,
		batcher:  batcher.New(cfg.BatchFn, cfg.MaxItems, cfg.BatchLess),
		exec:     executor.New(executor.Config{MaxConcurrency: cfg.MaxConcurrency, Runner: cfg.Runner, Logger: cfg.Logger}),
		metrics:  m,
		live:     make(map[pagestate.Key]*pagestate.State),
		progress: make(map[pagestate.Key]progressEntry),
	}
}

// Collectors returns every Prometheus collector this scheduler and its
// executor expose, for registration against the caller's registry.
func (s *Scheduler[K]) Collectors() []prometheus.Collector {
	cs := append([]prometheus.Collector{}, s.metrics.Collectors()...)
	return append(cs, s.exec.Collectors()...)
}

// Start launches the coordinator goroutine and returns the input and output
// channels described by spec.md §4.5 and §6: callers send initial
// PagingStates on input and close it once done, and read terminal states
// from output until it closes.
//
// params is passed through unchanged to every fetch_fn invocation
// (spec.md §6); it is opaque to the scheduler.
func (s *Scheduler[K]) Start(ctx context.Context, params any) (chan<- *pagestate.State, <-chan *pagestate.State) {
	input := make(chan *pagestate.State)
	output := make(chan *pagestate.State, s.cfg.ResultBuf)
	completions := make(chan batchResult, s.cfg.MaxConcurrency)

	go s.run(ctx, params, input, output, completions)

	return input, output
}

func (s *Scheduler[K]) run(ctx context.Context, params any, input chan *pagestate.State, output chan *pagestate.State, completions chan batchResult) {
	defer close(output)

	idle := time.NewTimer(s.cfg.IdleFlush)
	defer idle.Stop()

	inputOpen := true

	for {
		// InFlight only reaches 0 after every task's onDone send onto
		// completions has completed (executor.go decrements InFlight in a
		// defer that runs after onDone), so len(completions) == 0 is safe
		// to read here: it catches a still-buffered completion that a
		// concurrent task finished and enqueued while the coordinator was
		// parked in select, which InFlight()==0 alone would miss and let
		// the loop return with that state never ingested.
		if !inputOpen && s.batcher.Empty() && s.exec.InFlight() == 0 && len(completions) == 0 {
			return
		}

		select {
		case <-ctx.Done():
			s.drainOnCancel(ctx, output)
			return

		case st, ok := <-input:
			if !ok {
				inputOpen = false
				input = nil // disable this case permanently
				s.forceFlushAll()
				s.dispatch(ctx, params, completions)
				resetIdle(idle, s.cfg.IdleFlush)
				continue
			}
			s.live[st.Key] = st
			s.batcher.Add(st)
			s.dispatch(ctx, params, completions)
			resetIdle(idle, s.cfg.IdleFlush)

		case res := <-completions:
			s.ingest(res, output)
			s.dispatch(ctx, params, completions)
			resetIdle(idle, s.cfg.IdleFlush)

		case <-idle.C:
			s.metrics.idleFlushes.Inc()
			s.forceFlushAll()
			s.dispatch(ctx, params, completions)
			idle.Reset(s.cfg.IdleFlush)
		}
	}
}

// resetIdle implements the standard Stop-drain-Reset idiom: any event that
// represents forward progress pushes the idle deadline back out.
func resetIdle(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// forceFlushAll promotes every forming batch to Ready. Submission still
// respects MaxConcurrency via dispatch.
func (s *Scheduler[K]) forceFlushAll() {
	for {
		if _, ok := s.batcher.ForceFlush(); !ok {
			return
		}
	}
}

// dispatch submits Ready batches to the executor until it is at capacity or
// none remain.
func (s *Scheduler[K]) dispatch(ctx context.Context, params any, completions chan batchResult) {
	for s.exec.InFlight() < s.exec.MaxConcurrency() {
		batch, ok := s.batcher.PopReady()
		if !ok {
			return
		}
		s.metrics.batchesDispatched.Inc()

		key, members := batch.Key, batch.Members
		task := executor.Task{
			Run: func(ctx context.Context) (any, error) {
				return s.cfg.FetchFn(ctx, params, members)
			},
		}
		// Only this goroutine ever calls TrySubmit, so the InFlight check
		// above cannot have been invalidated by a concurrent submitter;
		// in-flight can only have gone down since, never up.
		s.exec.TrySubmit(ctx, task, func(c executor.Completion) {
			completions <- batchResult{key: key, members: members, response: c.Response, err: c.Err}
		})
	}
}

// ingest applies one completed batch's outcome: a fetch failure terminates
// every member, a parse failure likewise, and a parsed Result advances each
// member's cursor and items, re-queues non-terminal members, and admits
// spawned states (spec.md §4.5, §7).
func (s *Scheduler[K]) ingest(res batchResult, output chan *pagestate.State) {
	if res.err != nil {
		s.metrics.fetchFailures.Inc()
		wrapped := &FetchFailure{Key: fmt.Sprint(res.key), Err: res.err}
		for _, m := range res.members {
			m.Fail(wrapped)
			s.emit(m, output)
		}
		return
	}

	result, err := s.cfg.Parser.Parse(res.response, res.members)
	if err != nil {
		s.metrics.parseFailures.Inc()
		wrapped := &ParseFailure{Key: fmt.Sprint(res.key), Err: err}
		for _, m := range res.members {
			m.Fail(wrapped)
			s.emit(m, output)
		}
		return
	}

	for _, m := range res.members {
		cursor, ok := result.Cursors[m.Key]
		if !ok {
			cursor = pagestate.Done()
		}
		items := result.Items[m.Key]

		if guard := s.cfg.ProgressGuard; guard > 0 && !cursor.IsDone() {
			if tok, ok := cursor.Token(); ok {
				s.checkProgress(m, tok, guard)
			}
		}

		m.Advance(items, cursor)

		if m.Terminal() {
			delete(s.progress, m.Key)
			s.emit(m, output)
			continue
		}
		s.batcher.Add(m)
	}

	for _, spawned := range result.Spawns {
		if _, exists := s.live[spawned.Key]; exists {
			s.metrics.spawnCollisions.Inc()
			s.cfg.Logger.Warn().
				Str("entity_type", spawned.EntityType).
				Msg("discarding spawned state: key already live")
			continue
		}
		s.live[spawned.Key] = spawned
		s.batcher.Add(spawned)
	}
}

// checkProgress fails m immediately if it has now returned the same
// non-terminal cursor token guard times in a row (spec.md §9 open
// question: optional no-progress guard).
func (s *Scheduler[K]) checkProgress(m *pagestate.State, token any, guard int) {
	entry := s.progress[m.Key]
	if entry.token == token {
		entry.count++
	} else {
		entry.token = token
		entry.count = 1
	}
	s.progress[m.Key] = entry

	if entry.count >= guard {
		m.Fail(ErrNoProgress)
		delete(s.progress, m.Key)
	}
}

func (s *Scheduler[K]) emit(m *pagestate.State, output chan *pagestate.State) {
	delete(s.live, m.Key)
	outcome := "ok"
	if m.Exception != nil {
		outcome = "error"
	}
	s.metrics.statesEmitted.WithLabelValues(outcome).Inc()
	output <- m
}

// drainOnCancel fails every live state with ctx.Err and emits it, so Start's
// output channel still closes cleanly after context cancellation instead of
// leaving callers blocked on a read that will never come. In-flight fetch
// goroutines may still send a late completion onto completions after this
// returns; that send lands in the buffer and is never read, which is
// harmless since the coordinator is exiting anyway.
func (s *Scheduler[K]) drainOnCancel(ctx context.Context, output chan *pagestate.State) {
	for _, m := range s.live {
		if !m.Terminal() {
			m.Fail(ctx.Err())
		}
		output <- m
	}
}
