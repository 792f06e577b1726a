package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fluidsim/internal/physics"
)

// KineticEnergy is 1/2 m sum |v|^2 over all particles. Value is the mean over
// observed steps.
type KineticEnergy struct {
	name    string
	mass    float64
	buf     []float64
	last    float64
	total   float64
	samples int
}

func NewKineticEnergy(mass float64) *KineticEnergy {
	return &KineticEnergy{
		name: "kinetic_energy",
		mass: mass,
	}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(step int, ps []physics.Particle) {
	k.buf = resize(k.buf, len(ps))
	for i := range ps {
		k.buf[i] = ps[i].Velocity.Norm2()
	}
	k.last = 0.5 * k.mass * floats.Sum(k.buf)
	k.total += k.last
	k.samples++
}

func (k *KineticEnergy) Last() float64 { return k.last }

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.last = 0
	k.total = 0
	k.samples = 0
}

// EnergyDrift tracks the largest relative change of total mechanical energy
// (kinetic plus gravitational potential) from the first observed step.
type EnergyDrift struct {
	name          string
	mass          float64
	gravity       physics.Vec3
	initialEnergy float64
	currentEnergy float64
	last          float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(mass float64, gravity physics.Vec3) *EnergyDrift {
	return &EnergyDrift{
		name:    "energy_drift",
		mass:    mass,
		gravity: gravity,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

// Energy returns the total mechanical energy of ps.
func (e *EnergyDrift) Energy(ps []physics.Particle) float64 {
	var ke, pe float64
	for i := range ps {
		ke += ps[i].Velocity.Norm2()
		for a := 0; a < 3; a++ {
			pe -= e.gravity[a] * float64(ps[i].Position[a])
		}
	}
	return e.mass * (0.5*ke + pe)
}

func (e *EnergyDrift) Observe(step int, ps []physics.Particle) {
	energy := e.Energy(ps)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		e.last = math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, e.last)
	}
}

func (e *EnergyDrift) Last() float64 { return e.last }

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.last = 0
	e.maxDrift = 0
	e.samples = 0
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
