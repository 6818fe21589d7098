// Package metrics provides centralized Prometheus metrics documentation for
// pagesched. All metrics are defined in their respective packages (scheduler,
// executor, httpfetch, httpfetch/cache, httpfetch/ratelimit) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer, where the promauto-created
// httpfetch, httpfetch/cache and httpfetch/ratelimit metrics are registered.
// Scheduler and executor collectors are not registered anywhere
// automatically; a caller registers Scheduler.Collectors / Executor.Collectors
// against a registry of its choice.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Scheduler Metrics (pkg/scheduler):
//   - pagesched_scheduler_batches_dispatched_total (Counter): batches submitted to the executor
//   - pagesched_scheduler_states_emitted_total{outcome} (Counter): terminal states emitted, by outcome
//   - pagesched_scheduler_spawn_collisions_total (Counter): spawned states discarded because their key was already live
//   - pagesched_scheduler_idle_flushes_total (Counter): forming batches force-flushed after the idle interval
//   - pagesched_scheduler_fetch_failures_total (Counter): batches whose fetch_fn returned an error
//   - pagesched_scheduler_parse_failures_total (Counter): batches whose result parser returned an error
//
// Executor Metrics (pkg/executor):
//   - pagesched_executor_in_flight (Gauge): fetch tasks currently in flight
//   - pagesched_executor_tasks_total{outcome} (Counter): fetch tasks run, by outcome
//
// Rate Limit Metrics (pkg/httpfetch/ratelimit):
//   - pagesched_errors_remaining (Gauge): current errors remaining in the tracked error-budget window
//   - pagesched_rate_limit_blocks_total (Counter): requests blocked due to critical error budget
//   - pagesched_rate_limit_throttles_total (Counter): requests throttled due to warning error budget
//
// Cache Metrics (pkg/httpfetch/cache):
//   - pagesched_cache_hits_total{layer="redis"} (Counter): cache hits by layer
//   - pagesched_cache_misses_total (Counter): cache misses
//   - pagesched_cache_size_bytes{layer="redis"} (Gauge): current cache size in bytes
//   - pagesched_not_modified_responses_total (Counter): 304 Not Modified responses
//   - pagesched_cache_errors_total{operation} (Counter): cache operation errors
//
// Request Metrics (pkg/httpfetch):
//   - pagesched_fetch_requests_total{endpoint, status} (Counter): total requests by endpoint and status
//   - pagesched_fetch_duration_seconds{endpoint} (Histogram): request duration by endpoint
//   - pagesched_fetch_errors_total{class} (Counter): errors by class (client, server, rate_limit, network)
//   - pagesched_fetch_retries_total{error_class} (Counter): retry attempts by error class
//   - pagesched_fetch_retry_exhausted_total{error_class} (Counter): requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache hit rate
//   sum(rate(pagesched_cache_hits_total[5m])) /
//   (sum(rate(pagesched_cache_hits_total[5m])) + sum(rate(pagesched_cache_misses_total[5m])))
//
//   # Error budget status
//   pagesched_errors_remaining < 20
//
//   # Fetch error rate
//   rate(pagesched_fetch_errors_total[5m])
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(pagesched_fetch_duration_seconds_bucket[5m]))
//
//   # In-flight vs concurrency cap
//   pagesched_executor_in_flight
