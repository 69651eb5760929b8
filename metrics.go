package greenhub

import "github.com/prometheus/client_golang/prometheus"

// hubMetrics instruments a single Hub's internals. Each Hub owns a private
// prometheus.Registry (see NewHubWithConfig) instead of registering against
// prometheus.DefaultRegisterer, because tests in this module routinely
// construct many Hubs in one process and a shared default registry would
// panic on the second MustRegister of the same metric name.
type hubMetrics struct {
	tasksScheduled prometheus.Counter
	timeoutsFired  prometheus.Counter
	probeEINTR     prometheus.Counter
	runQueueDepth  prometheus.Gauge
	timerHeapDepth prometheus.Gauge
	readinessDepth prometheus.Gauge
}

func newHubMetrics(reg prometheus.Registerer) *hubMetrics {
	m := &hubMetrics{
		tasksScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhub_tasks_scheduled_total",
			Help: "Total tasks enqueued onto the run queue.",
		}),
		timeoutsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhub_timeouts_fired_total",
			Help: "Total wait records fired by deadline rather than by their condition.",
		}),
		probeEINTR: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhub_probe_eintr_total",
			Help: "Total EINTR retries inside the readiness probe.",
		}),
		runQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhub_run_queue_depth",
			Help: "Run queue length, sampled once per loop iteration.",
		}),
		timerHeapDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhub_timer_heap_depth",
			Help: "Timer heap length, sampled once per loop iteration.",
		}),
		readinessDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhub_readiness_table_depth",
			Help: "Readiness table waiter count, sampled once per loop iteration.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.tasksScheduled,
			m.timeoutsFired,
			m.probeEINTR,
			m.runQueueDepth,
			m.timerHeapDepth,
			m.readinessDepth,
		)
	}
	return m
}
