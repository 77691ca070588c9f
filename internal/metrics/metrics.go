// Package metrics exposes the runtime's Prometheus registry wrapped as
// an http.Handler. The scheduler, worker pool, and
// pledge registry publish gauges/counters through this package rather
// than a global default registry, so tests can spin up isolated
// instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the runtime's metric families behind one
// prometheus.Registerer/http.Handler pair.
type Registry struct {
	reg *prometheus.Registry

	PendingCoroutines prometheus.Gauge
	SchedulerPolls    prometheus.Counter

	ActiveWorkers  prometheus.Gauge
	RunnableQueue  prometheus.Gauge
	WorkerMessages prometheus.Counter

	PledgeChecks  *prometheus.CounterVec
	PledgeDenials *prometheus.CounterVec
}

// New creates a fresh, isolated Registry with every gauge/counter
// registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		PendingCoroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lus", Subsystem: "scheduler", Name: "pending_coroutines",
			Help: "Number of detached coroutines currently suspended.",
		}),
		SchedulerPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lus", Subsystem: "scheduler", Name: "polls_total",
			Help: "Number of scheduler.poll invocations.",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lus", Subsystem: "worker_pool", Name: "active_workers",
			Help: "Number of worker VMs currently running.",
		}),
		RunnableQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lus", Subsystem: "worker_pool", Name: "runnable_queue_depth",
			Help: "Number of workers waiting for a pool thread.",
		}),
		WorkerMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lus", Subsystem: "worker_pool", Name: "messages_total",
			Help: "Number of messages sent between workers.",
		}),
		PledgeChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lus", Subsystem: "pledge", Name: "checks_total",
			Help: "Number of pledge.has() checks, by permission name.",
		}, []string{"name"}),
		PledgeDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lus", Subsystem: "pledge", Name: "denials_total",
			Help: "Number of denied pledge checks, by permission name.",
		}, []string{"name"}),
	}
	reg.MustRegister(r.PendingCoroutines, r.SchedulerPolls, r.ActiveWorkers,
		r.RunnableQueue, r.WorkerMessages, r.PledgeChecks, r.PledgeDenials)
	return r
}

// Handler returns the http.Handler the CLI can optionally mount for
// scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
