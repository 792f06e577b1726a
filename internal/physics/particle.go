package physics

import "math"

type Vec3f [3]float32

type Vec3 [3]float64

func (v Vec3f) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}

func (v Vec3) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Norm2 returns the squared length.
func (v Vec3f) Norm2() float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return s
}

// Particle is one fluid particle. ID is its ordinal in the input stream and is
// only used to restore that order on output.
type Particle struct {
	ID           int
	Position     Vec3f
	HalfVelocity Vec3f
	Velocity     Vec3f
	Density      float64
	Acceleration Vec3

	// Accelerated is set once the particle took part in a pair update during
	// the current acceleration pass.
	Accelerated bool
}

func NewParticle(id int, pos, hv, vel Vec3f, gravity Vec3) Particle {
	return Particle{
		ID:           id,
		Position:     pos,
		HalfVelocity: hv,
		Velocity:     vel,
		Acceleration: gravity,
	}
}

// Reset prepares the particle for a new step.
func (p *Particle) Reset(gravity Vec3) {
	p.Acceleration = gravity
	p.Accelerated = false
}

func (p *Particle) IsValid() bool {
	return p.Position.IsFinite() && p.Acceleration.IsFinite()
}
