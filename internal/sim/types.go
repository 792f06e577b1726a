package sim

import "github.com/san-kum/fluidsim/internal/physics"

// Metric reduces the particle state to one scalar per step. Last reports the
// value of the most recent step and Value the summary over the whole run.
type Metric interface {
	Name() string
	Observe(step int, ps []physics.Particle)
	Last() float64
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(step int, ps []physics.Particle)
}

type Config struct {
	// Rebucket recomputes block membership from current positions at the
	// start of every step. When false membership is fixed after loading.
	Rebucket bool

	// ValidateState stops the run once a position or acceleration becomes
	// NaN or Inf. Non-finite values propagate silently otherwise.
	ValidateState bool

	// StartStep is the number of steps already taken, for resumed runs.
	StartStep int
}

// Series holds the per-step values of every metric, one row per step.
type Series struct {
	Names []string
	Steps []int
	Rows  [][]float64
}

func (s *Series) Len() int { return len(s.Rows) }

// Column returns the values of the named metric, or nil if it is unknown.
func (s *Series) Column(name string) []float64 {
	col := -1
	for i, n := range s.Names {
		if n == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}
	out := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row[col]
	}
	return out
}

type Result struct {
	StepsTaken int
	Metrics    map[string]float64
	Series     Series
	Errors     []error
}
