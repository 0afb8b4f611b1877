// Package metrics provides Prometheus metrics for perturbd.
//
// All metrics are aggregate: labels carry the probe kind and the
// outcome class, never target names or PIDs, so cardinality stays
// bounded no matter how large the catalog grows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the engine's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	info          *prometheus.GaugeVec
	probesTotal   *prometheus.CounterVec
	signalErrors  *prometheus.CounterVec
	attachesTotal *prometheus.CounterVec
	freezePolls   prometheus.Histogram
	recoverySecs  *prometheus.HistogramVec
	cyclesTotal   prometheus.Counter
	phaseGauge    *prometheus.GaugeVec
}

// NewCollector creates a collector backed by its own registry.
func NewCollector(version string) *Collector {
	return NewCollectorWithRegistry(version, prometheus.NewRegistry())
}

// NewCollectorWithRegistry creates a collector on an existing registry.
// Useful for testing.
func NewCollectorWithRegistry(version string, registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry: registry,

		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perturbd_info",
				Help: "Information about the probe engine (value always 1)",
			},
			[]string{"version"},
		),

		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perturbd_probes_total",
				Help: "Probe applications by probe kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		signalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perturbd_signal_errors_total",
				Help: "Failed signal deliveries (process vanished mid-probe)",
			},
			[]string{"kind"},
		),

		attachesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perturbd_attaches_total",
				Help: "Debugger attaches by stop classification",
			},
			[]string{"stop"},
		),

		freezePolls: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "perturbd_freeze_poll_iterations",
				Help:    "Poll iterations consumed before a freeze probe resolved",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),

		recoverySecs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "perturbd_recovery_seconds",
				Help:    "Observed time from perturbation to confirmed recovery",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"kind"},
		),

		cyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "perturbd_cycles_total",
				Help: "Completed probe cycles",
			},
		),

		phaseGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perturbd_phase",
				Help: "Current scheduler phase (1 = active)",
			},
			[]string{"phase"},
		),
	}

	registry.MustRegister(
		c.info,
		c.probesTotal,
		c.signalErrors,
		c.attachesTotal,
		c.freezePolls,
		c.recoverySecs,
		c.cyclesTotal,
		c.phaseGauge,
	)

	c.info.WithLabelValues(version).Set(1)

	return c
}

// Registry returns the backing registry for the HTTP handler and the
// shutdown snapshot.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CountOutcome counts one probe outcome.
func (c *Collector) CountOutcome(kind, outcome string) {
	c.probesTotal.WithLabelValues(kind, outcome).Inc()
}

// CountSignalError counts a failed signal delivery.
func (c *Collector) CountSignalError(kind string) {
	c.signalErrors.WithLabelValues(kind).Inc()
}

// CountAttach counts a debugger attach.
func (c *Collector) CountAttach(clean bool) {
	stop := "clean"
	if !clean {
		stop = "unusual"
	}
	c.attachesTotal.WithLabelValues(stop).Inc()
}

// ObserveFreezePolls records poll iterations consumed by a freeze probe.
func (c *Collector) ObserveFreezePolls(n int) {
	c.freezePolls.Observe(float64(n))
}

// ObserveRecovery records an observed recovery duration in seconds.
func (c *Collector) ObserveRecovery(kind string, seconds float64) {
	c.recoverySecs.WithLabelValues(kind).Observe(seconds)
}

// CycleCompleted counts a finished cycle.
func (c *Collector) CycleCompleted() {
	c.cyclesTotal.Inc()
}

// SetPhase marks phase as the single active phase.
func (c *Collector) SetPhase(phase string) {
	c.phaseGauge.Reset()
	c.phaseGauge.WithLabelValues(phase).Set(1)
}
