package executor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics mirrors teacher pkg/client/client.go's promauto.NewGaugeVec /
// NewCounterVec pattern, scoped to one Executor instance rather than
// package-global so that multiple schedulers in one process don't collide
// on metric registration.
type metrics struct {
	inFlightGauge prometheus.Gauge
	tasksTotal    *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		inFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pagesched_executor_in_flight",
			Help: "Number of fetch tasks currently in flight.",
		}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagesched_executor_tasks_total",
			Help: "Total number of fetch tasks run, by outcome.",
		}, []string{"outcome"}),
	}
}

// Collectors returns the Prometheus collectors for this executor, so a
// caller can register them against its own registry instead of the global
// default (avoiding double-registration when more than one Scheduler runs
// in a process).
func (m *metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.inFlightGauge, m.tasksTotal}
}
