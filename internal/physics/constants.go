package physics

import (
	"fmt"
	"math"
)

// Reference values for a run.
const (
	DefaultRadiusMultiplier    = 1.695
	DefaultFluidDensity        = 1e3
	DefaultStiffnessPressure   = 3.0
	DefaultStiffnessCollisions = 3e4
	DefaultDamping             = 128.0
	DefaultViscosity           = 0.4
	DefaultParticleSize        = 2e-4
	DefaultTimeStep            = 1e-3
)

var (
	DefaultGravity    = Vec3{0.0, -9.8, 0.0}
	DefaultLowerBound = Vec3{-0.065, -0.08, -0.065}
	DefaultUpperBound = Vec3{0.065, 0.1, 0.065}
)

// Params are the physical constants that do not depend on the input file.
type Params struct {
	RadiusMultiplier    float64
	FluidDensity        float64
	StiffnessPressure   float64
	StiffnessCollisions float64
	Damping             float64
	Viscosity           float64
	ParticleSize        float64
	TimeStep            float64
	Gravity             Vec3
	Lower, Upper        Vec3
}

func DefaultParams() Params {
	return Params{
		RadiusMultiplier:    DefaultRadiusMultiplier,
		FluidDensity:        DefaultFluidDensity,
		StiffnessPressure:   DefaultStiffnessPressure,
		StiffnessCollisions: DefaultStiffnessCollisions,
		Damping:             DefaultDamping,
		Viscosity:           DefaultViscosity,
		ParticleSize:        DefaultParticleSize,
		TimeStep:            DefaultTimeStep,
		Gravity:             DefaultGravity,
		Lower:               DefaultLowerBound,
		Upper:               DefaultUpperBound,
	}
}

// ParamNames lists the scalar parameters accepted by Set, in config key form.
var ParamNames = []string{
	"radius_multiplier",
	"fluid_density",
	"stiffness_pressure",
	"stiffness_collisions",
	"damping",
	"viscosity",
	"particle_size",
	"time_step",
}

// Set changes one scalar parameter by its config key.
func (p *Params) Set(name string, v float64) error {
	switch name {
	case "radius_multiplier":
		p.RadiusMultiplier = v
	case "fluid_density":
		p.FluidDensity = v
	case "stiffness_pressure":
		p.StiffnessPressure = v
	case "stiffness_collisions":
		p.StiffnessCollisions = v
	case "damping":
		p.Damping = v
	case "viscosity":
		p.Viscosity = v
	case "particle_size":
		p.ParticleSize = v
	case "time_step":
		p.TimeStep = v
	default:
		return fmt.Errorf("unknown parameter: %s", name)
	}
	return nil
}

// Extent returns the box length along axis a.
func (p Params) Extent(a int) float64 { return p.Upper[a] - p.Lower[a] }

// Constants is the read-only configuration of one run. It is built once from
// the input header and handed to the grid and the engine.
type Constants struct {
	Params

	PPM  float64
	Mass float64

	// Smoothing length and its powers.
	H, H2, H3, H6, H9 float64

	DensityFactor   float64
	PressureFactor  float64
	ViscosityFactor float64
}

func NewConstants(p Params, ppm float64) *Constants {
	c := &Constants{Params: p}
	c.Init(ppm)
	return c
}

// Init sets ppm and recomputes every derived value. A zero ppm is not an
// error; the derived values become non-finite and propagate as such.
func (c *Constants) Init(ppm float64) {
	c.PPM = ppm
	c.Mass = c.FluidDensity / (ppm * ppm * ppm)
	c.H = c.RadiusMultiplier / ppm

	c.H2 = c.H * c.H
	c.H3 = c.H2 * c.H
	c.H6 = c.H3 * c.H3
	c.H9 = c.H6 * c.H3

	c.DensityFactor = 315.0 / (64.0 * math.Pi) * c.H9 * c.Mass
	c.PressureFactor = 15.0 / math.Pi * c.H6 * (3.0 * c.Mass * c.StiffnessPressure / 2.0)
	c.ViscosityFactor = 45.0 / math.Pi * c.H6 * c.Viscosity * c.Mass
}
