// Package executor runs the caller's fetch function under a bounded
// concurrency cap and reports completions back to the scheduler
// (spec.md §4.4). The pattern — a semaphore-style admission count plus a
// goroutine per admitted task — is carried over from the teacher's
// pkg/pagination worker pool, restructured from "drain a fixed page
// queue" into "admit one task at a time, on demand".
package executor

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Task is the unit of work the executor runs: a closure that produces a
// response or error. Whatever batch the closure fetches is captured inside
// it and never seen by the executor; only the scheduler and the caller's
// fetch function interpret it.
type Task struct {
	// Run performs the fetch and returns its response or error. It must
	// respect ctx cancellation if it can block.
	Run func(ctx context.Context) (response any, err error)
}

// Completion is posted back to the scheduler when a submitted Task ends,
// regardless of outcome (spec.md §5).
type Completion struct {
	Response any
	Err      error
}

// AsyncRunner executes a task asynchronously. The default implementation
// spawns a goroutine; callers may substitute a worker-pool-backed runner
// that shares a fixed set of goroutines across many Executors.
type AsyncRunner interface {
	Go(fn func())
}

// GoRunner is the platform-standard AsyncRunner: one goroutine per task.
type GoRunner struct{}

// Go implements AsyncRunner.
func (GoRunner) Go(fn func()) { go fn() }

// Executor is a bounded-parallelism task runner. TrySubmit admits a task
// only while fewer than MaxConcurrency tasks are in flight; the scheduler
// is responsible for re-offering a task it could not submit.
type Executor struct {
	maxConcurrency int
	runner         AsyncRunner
	logger         zerolog.Logger

	inFlight int64
	metrics  *metrics
}

// Config configures an Executor.
type Config struct {
	MaxConcurrency int
	Runner         AsyncRunner
	Logger         zerolog.Logger
}

// New constructs an Executor. MaxConcurrency below 1 is treated as 1
// (spec.md §3, EngineConfig default). A nil Runner defaults to GoRunner.
func New(cfg Config) *Executor {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Runner == nil {
		cfg.Runner = GoRunner{}
	}
	return &Executor{
		maxConcurrency: cfg.MaxConcurrency,
		runner:         cfg.Runner,
		logger:         cfg.Logger,
		metrics:        newMetrics(),
	}
}

// InFlight returns the current number of in-progress tasks.
func (e *Executor) InFlight() int {
	return int(atomic.LoadInt64(&e.inFlight))
}

// MaxConcurrency returns the configured admission cap.
func (e *Executor) MaxConcurrency() int {
	return e.maxConcurrency
}

// Collectors returns this executor's Prometheus collectors.
func (e *Executor) Collectors() []prometheus.Collector {
	return e.metrics.Collectors()
}

// TrySubmit admits t if fewer than MaxConcurrency tasks are currently in
// flight, running it via the configured AsyncRunner and posting its
// Completion to onDone exactly once when it ends. It returns false, doing
// nothing, if the executor is already at capacity (spec.md §4.4).
func (e *Executor) TrySubmit(ctx context.Context, t Task, onDone func(Completion)) bool {
	for {
		cur := atomic.LoadInt64(&e.inFlight)
		if cur >= int64(e.maxConcurrency) {
			return false
		}
		if atomic.CompareAndSwapInt64(&e.inFlight, cur, cur+1) {
			break
		}
	}

	e.metrics.inFlightGauge.Set(float64(e.InFlight()))

	e.runner.Go(func() {
		defer func() {
			atomic.AddInt64(&e.inFlight, -1)
			e.metrics.inFlightGauge.Set(float64(e.InFlight()))
		}()

		response, err := t.Run(ctx)
		if err != nil {
			e.metrics.tasksTotal.WithLabelValues("error").Inc()
			e.logger.Warn().Err(err).Msg("fetch task failed")
		} else {
			e.metrics.tasksTotal.WithLabelValues("ok").Inc()
		}

		onDone(Completion{Response: response, Err: err})
	})

	return true
}
