package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fluidsim/internal/physics"
)

// MaxSpeed is the largest particle speed of a step. Value is the largest over
// the run.
type MaxSpeed struct {
	name    string
	buf     []float64
	last    float64
	max     float64
	samples int
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{
		name: "max_speed",
	}
}

func (m *MaxSpeed) Name() string {
	return m.name
}

func (m *MaxSpeed) Observe(step int, ps []physics.Particle) {
	m.samples++
	if len(ps) == 0 {
		m.last = 0
		return
	}
	m.buf = resize(m.buf, len(ps))
	for i := range ps {
		m.buf[i] = ps[i].Velocity.Norm2()
	}
	m.last = math.Sqrt(floats.Max(m.buf))
	m.max = math.Max(m.max, m.last)
}

func (m *MaxSpeed) Last() float64 { return m.last }

func (m *MaxSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.max
}

func (m *MaxSpeed) Reset() {
	m.last = 0
	m.max = 0
	m.samples = 0
}

// MeanDensity is the average particle density of a step. Value is the
// average over the run.
type MeanDensity struct {
	name    string
	buf     []float64
	last    float64
	sum     float64
	samples int
}

func NewMeanDensity() *MeanDensity {
	return &MeanDensity{
		name: "mean_density",
	}
}

func (m *MeanDensity) Name() string {
	return m.name
}

func (m *MeanDensity) Observe(step int, ps []physics.Particle) {
	m.samples++
	if len(ps) == 0 {
		m.last = 0
		return
	}
	m.buf = resize(m.buf, len(ps))
	for i := range ps {
		m.buf[i] = ps[i].Density
	}
	m.last = floats.Sum(m.buf) / float64(len(ps))
	m.sum += m.last
}

func (m *MeanDensity) Last() float64 { return m.last }

func (m *MeanDensity) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanDensity) Reset() {
	m.last = 0
	m.sum = 0
	m.samples = 0
}
