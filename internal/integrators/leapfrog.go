package integrators

import "github.com/san-kum/fluidsim/internal/physics"

// Leapfrog advances a particle by one step using its half-step velocity.
type Leapfrog struct {
	Dt float64
}

func NewLeapfrog(dt float64) *Leapfrog {
	return &Leapfrog{Dt: dt}
}

// Step updates position, velocity and half-step velocity from the current
// acceleration. Arithmetic is done in double precision and stored back as
// single precision. Products are converted explicitly so they are never
// fused with the following addition.
func (l *Leapfrog) Step(p *physics.Particle) {
	dt := l.Dt
	dt2 := dt * dt
	halfDt := dt / 2

	for i := 0; i < 3; i++ {
		hv := float64(p.HalfVelocity[i])
		a := p.Acceleration[i]

		p.Position[i] = float32(float64(p.Position[i]) + float64(hv*dt) + float64(a*dt2))
		p.Velocity[i] = float32(hv + float64(a*halfDt))
		p.HalfVelocity[i] = float32(hv + float64(a*dt))
	}
}
