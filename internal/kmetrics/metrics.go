// Package kmetrics exposes the PCB's counters as Prometheus metrics.
// The kernel core publishes to it only once Kernel.SetMetrics is called;
// cmd/hellfirekerneld wires it in as an optional inspection surface: current task counters,
// deadline-miss counts, per-task rtjobs/bgjobs.
package kmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registered collectors. Registry is exported so
// cmd/hellfirekerneld can mount promhttp.HandlerFor(m.Registry, ...)
// without relying on the global default registry.
type Metrics struct {
	Registry *prometheus.Registry

	Interrupts       prometheus.Counter
	CoopSwitches     prometheus.Counter
	PreemptSwitches  prometheus.Counter
	TickTimeMicros   prometheus.Counter
	DeadlineMisses   *prometheus.CounterVec
	RTJobs           *prometheus.CounterVec
	BGJobs           *prometheus.CounterVec
	TasksByState     *prometheus.GaugeVec
	Utilization1e4   prometheus.Gauge
}

// New registers and returns a fresh Metrics instance.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Interrupts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hellfirekernel_interrupts_total",
			Help: "Total tick interrupts taken.",
		}),
		CoopSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hellfirekernel_cooperative_switches_total",
			Help: "Total cooperative (yield-driven) context switches.",
		}),
		PreemptSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hellfirekernel_preemptive_switches_total",
			Help: "Total preemptive (dispatcher-driven) context switches.",
		}),
		TickTimeMicros: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hellfirekernel_tick_time_micros_total",
			Help: "Cumulative simulated tick time, in microseconds.",
		}),
		DeadlineMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hellfirekernel_deadline_misses_total",
			Help: "Deadline misses per task.",
		}, []string{"task"}),
		RTJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hellfirekernel_rt_jobs_total",
			Help: "Released real-time jobs per task.",
		}, []string{"task"}),
		BGJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hellfirekernel_bg_jobs_total",
			Help: "Completed best-effort tasks per task; aperiodic jobs finished by the polling server are not counted.",
		}, []string{"task"}),
		TasksByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hellfirekernel_tasks",
			Help: "Number of TCB slots currently in each state.",
		}, []string{"state"}),
		Utilization1e4: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hellfirekernel_rt_utilization_x10000",
			Help: "Admitted real-time utilization, scaled by 10000.",
		}),
	}
	reg.MustRegister(
		m.Interrupts, m.CoopSwitches, m.PreemptSwitches, m.TickTimeMicros,
		m.DeadlineMisses, m.RTJobs, m.BGJobs, m.TasksByState, m.Utilization1e4,
	)
	return m
}
