package physics

import "math"

// Products below are wrapped in explicit float64 conversions wherever they
// feed an addition, so the compiler cannot fuse them into FMA instructions
// and output files are bit-identical on every architecture.

const (
	minDistance2   = 1e-12
	collisionSlack = 1e-10
)

// SquaredDistance returns |p - q|^2. Differences are taken in single
// precision, matching the stored positions.
func SquaredDistance(p, q *Particle) float64 {
	var d2 float64
	for a := 0; a < 3; a++ {
		d := float64(p.Position[a] - q.Position[a])
		d2 += float64(d * d)
	}
	return d2
}

// Distance is floored so coincident particles never divide by zero.
func Distance(p, q *Particle) float64 {
	return math.Sqrt(math.Max(SquaredDistance(p, q), minDistance2))
}

// AccumulateDensity adds the contribution of q to p and re-normalises right
// away, so the result depends on the order neighbors are visited in.
func AccumulateDensity(p, q *Particle, c *Constants) {
	d2 := SquaredDistance(p, q)
	if d2 >= c.H2 {
		return
	}
	diff := c.H2 - d2
	p.Density += float64(diff * diff * diff)
	p.Density = (p.Density + c.H6) * c.DensityFactor
}

// TransferAcceleration applies the pressure and viscosity term of the pair to
// both particles with opposite signs. Nothing happens if q is out of range or
// p already took part in a pair this pass. Reports whether the pair was applied.
func TransferAcceleration(p, q *Particle, c *Constants) bool {
	if p.Accelerated {
		return false
	}
	d2 := SquaredDistance(p, q)
	if d2 >= c.H2 {
		return false
	}

	dist := Distance(p, q)
	k := c.H2 - dist
	scale := c.PressureFactor * (k * k / dist) *
		(p.Density + q.Density - 2*c.FluidDensity) *
		c.ViscosityFactor / (p.Density * q.Density)

	for a := 0; a < 3; a++ {
		change := float64(float64(p.Position[a]-q.Position[a]) * scale)
		p.Acceleration[a] += change
		q.Acceleration[a] -= change
	}
	p.Accelerated = true
	q.Accelerated = true
	return true
}

// BoxCollision pushes a particle away from a wall it is about to reach. At
// most one wall per axis contributes. Both walls use their own penetration
// depth: the upper wall subtracts ks*upper + damping*v, mirroring the lower
// wall, rather than reusing the lower wall's depth.
func BoxCollision(p *Particle, c *Constants) {
	for a := 0; a < 3; a++ {
		next := float64(float32(float64(p.Position[a]) + float64(float64(p.HalfVelocity[a])*c.TimeStep)))
		lower := c.ParticleSize - (next - c.Lower[a])
		upper := c.ParticleSize - (c.Upper[a] - next)
		v := float64(p.Velocity[a])

		if lower > collisionSlack {
			p.Acceleration[a] += float64(c.StiffnessCollisions*lower) - float64(c.Damping*v)
		} else if upper > collisionSlack {
			p.Acceleration[a] -= float64(c.StiffnessCollisions*upper) + float64(c.Damping*v)
		}
	}
}

// BoundaryCollision reflects a particle that ended up outside the box.
func BoundaryCollision(p *Particle, c *Constants) {
	for a := 0; a < 3; a++ {
		pos := float64(p.Position[a])
		dLower := pos - c.Lower[a]
		dUpper := c.Upper[a] - pos

		switch {
		case dLower < 0:
			p.Position[a] = float32(c.Lower[a] - dLower)
		case dUpper < 0:
			p.Position[a] = float32(c.Upper[a] + dUpper)
		default:
			continue
		}
		p.Velocity[a] = -p.Velocity[a]
		p.HalfVelocity[a] = -p.HalfVelocity[a]
	}
}
