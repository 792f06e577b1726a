package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

// DefaultMetrics are observed when a run does not name any.
var DefaultMetrics = []string{"kinetic_energy", "max_speed", "mean_density"}

type Registry struct {
	metrics map[string]func(c *physics.Constants) sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func(c *physics.Constants) sim.Metric),
	}

	r.metrics["kinetic_energy"] = func(c *physics.Constants) sim.Metric { return metrics.NewKineticEnergy(c.Mass) }
	r.metrics["energy_drift"] = func(c *physics.Constants) sim.Metric { return metrics.NewEnergyDrift(c.Mass, c.Gravity) }
	r.metrics["max_speed"] = func(c *physics.Constants) sim.Metric { return metrics.NewMaxSpeed() }
	r.metrics["mean_density"] = func(c *physics.Constants) sim.Metric { return metrics.NewMeanDensity() }
	r.metrics["containment"] = func(c *physics.Constants) sim.Metric { return metrics.NewContainment(c.Lower, c.Upper) }

	return r
}

func (r *Registry) GetMetric(name string, c *physics.Constants) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(c), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
