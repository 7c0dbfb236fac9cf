// Package metrics exposes Prometheus collectors for the task list service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors updated by controlplane.Service.
type Metrics struct {
	Tasks          prometheus.Gauge
	Mutations      *prometheus.CounterVec
	Compiles       prometheus.Counter
	ScriptBytes    prometheus.Gauge
	Ingested       prometheus.Counter
	Rejected       prometheus.Counter
	IngestFailures *prometheus.CounterVec
	Exports        *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers a fresh set of collectors with reg and panics on
// duplicate registration. Tests pass prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "devlaunch",
			Name:      "tasks",
			Help:      "Number of tasks in the current list.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlaunch",
			Name:      "mutations_total",
			Help:      "Task list mutations by kind.",
		}, []string{"kind"}),
		Compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlaunch",
			Name:      "compiles_total",
			Help:      "Full recompilations of the launcher script.",
		}),
		ScriptBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "devlaunch",
			Name:      "script_bytes",
			Help:      "Size of the current compiled script.",
		}),
		Ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlaunch",
			Subsystem: "ingest",
			Name:      "tasks_total",
			Help:      "Candidates admitted into the task list.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlaunch",
			Subsystem: "ingest",
			Name:      "rejected_total",
			Help:      "Candidates dropped by validation.",
		}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlaunch",
			Subsystem: "ingest",
			Name:      "failures_total",
			Help:      "Ingestion batches that failed before any task was added.",
		}, []string{"reason"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlaunch",
			Name:      "exports_total",
			Help:      "Script exports by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}

	reg.MustRegister(m.Tasks, m.Mutations, m.Compiles, m.ScriptBytes,
		m.Ingested, m.Rejected, m.IngestFailures, m.Exports)
	return m
}
