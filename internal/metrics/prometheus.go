package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/sim"
)

// Collector records solver statistics into its own Prometheus registry. It
// is a sim.Observer; attach one per run.
type Collector struct {
	registry *prometheus.Registry

	steps      prometheus.Counter
	rejected   prometheus.Counter
	iterations prometheus.Histogram
	residual   prometheus.Gauge
	dt         prometheus.Gauge
	time       prometheus.Gauge
	energy     prometheus.Gauge

	stored *StoredEnergy
}

// NewCollector labels every series with the run name. A nil geo skips the
// stored energy gauge.
func NewCollector(run string, geo *geometry.Geometry) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"run": run}

	c := &Collector{
		registry: reg,
		steps: factory.NewCounter(prometheus.CounterOpts{
			Name:        "torasim_steps_total",
			Help:        "Accepted time steps",
			ConstLabels: labels,
		}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Name:        "torasim_rejected_attempts_total",
			Help:        "Solver attempts discarded before a step was accepted",
			ConstLabels: labels,
		}),
		iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "torasim_solver_iterations",
			Help:        "Solver iterations per accepted step",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21, 30},
			ConstLabels: labels,
		}),
		residual: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "torasim_residual",
			Help:        "Residual of the last accepted step",
			ConstLabels: labels,
		}),
		dt: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "torasim_dt_seconds",
			Help:        "Last accepted time step",
			ConstLabels: labels,
		}),
		time: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "torasim_sim_time_seconds",
			Help:        "Simulated time reached",
			ConstLabels: labels,
		}),
		energy: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "torasim_stored_energy_megajoules",
			Help:        "Plasma thermal energy",
			ConstLabels: labels,
		}),
	}
	if geo != nil {
		c.stored = NewStoredEnergy(geo)
	}
	return c
}

// OnStep implements sim.Observer.
func (c *Collector) OnStep(rec sim.StepRecord) {
	c.time.Set(rec.Time)
	if c.stored != nil {
		c.stored.Observe(rec)
		c.energy.Set(c.stored.Value())
	}
	if rec.Step == 0 {
		return
	}
	c.steps.Inc()
	c.rejected.Add(float64(rec.Rejected))
	c.iterations.Observe(float64(rec.Iterations))
	c.residual.Set(rec.Residual)
	c.dt.Set(rec.Dt)
}

// Registry exposes the collected series, e.g. for a /metrics handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile writes a snapshot in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
