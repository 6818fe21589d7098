package scheduler

import "github.com/prometheus/client_golang/prometheus"

// metrics mirrors the instance-scoped collector pattern used throughout this
// module (see pkg/executor/metrics.go): manually constructed so a caller
// registers them against its own registry, never the global default.
type metrics struct {
	batchesDispatched prometheus.Counter
	statesEmitted     *prometheus.CounterVec
	spawnCollisions   prometheus.Counter
	idleFlushes       prometheus.Counter
	fetchFailures     prometheus.Counter
	parseFailures     prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		batchesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesched_scheduler_batches_dispatched_total",
			Help: "Total number of batches submitted to the executor.",
		}),
		statesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagesched_scheduler_states_emitted_total",
			Help: "Total number of terminal states emitted on the output stream, by outcome.",
		}, []string{"outcome"}),
		spawnCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesched_scheduler_spawn_collisions_total",
			Help: "Total number of spawned states discarded because their key was already live.",
		}),
		idleFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesched_scheduler_idle_flushes_total",
			Help: "Total number of forming batches force-flushed after the idle interval elapsed.",
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesched_scheduler_fetch_failures_total",
			Help: "Total number of batches whose fetch_fn returned an error.",
		}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesched_scheduler_parse_failures_total",
			Help: "Total number of batches whose result parser returned an error.",
		}),
	}
}

// Collectors returns the Prometheus collectors for one Scheduler instance.
func (m *metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.batchesDispatched,
		m.statesEmitted,
		m.spawnCollisions,
		m.idleFlushes,
		m.fetchFailures,
		m.parseFailures,
	}
}
