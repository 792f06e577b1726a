package metrics

import (
	"github.com/san-kum/fluidsim/internal/physics"
)

// Containment is the fraction of steps after which every particle was inside
// the box. Non-finite positions count as outside.
type Containment struct {
	name         string
	lower, upper physics.Vec3
	last         float64
	violations   int
	samples      int
}

func NewContainment(lower, upper physics.Vec3) *Containment {
	return &Containment{
		name:  "containment",
		lower: lower,
		upper: upper,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(step int, ps []physics.Particle) {
	c.samples++
	c.last = 1
	for i := range ps {
		if !c.inside(ps[i].Position) {
			c.violations++
			c.last = 0
			break
		}
	}
}

func (c *Containment) inside(pos physics.Vec3f) bool {
	for a := 0; a < 3; a++ {
		x := float64(pos[a])
		// NaN fails both comparisons.
		if !(x >= c.lower[a] && x <= c.upper[a]) {
			return false
		}
	}
	return true
}

func (c *Containment) Last() float64 { return c.last }

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.last = 0
	c.violations = 0
	c.samples = 0
}
