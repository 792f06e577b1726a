package grid

import "github.com/san-kum/fluidsim/internal/physics"

// Block is one cell of the grid. Particles and Neighbors are handles into the
// grid's particle arena and block list.
type Block struct {
	Index     Index
	Particles []int
	Neighbors []int
}

// visit calls fn for every particle the reference particle h interacts with:
// the neighbor blocks in link order, preceded by the block's own particles
// when self interaction is enabled.
func (b *Block) visit(g *Grid, h int, fn func(q *physics.Particle)) {
	if g.opts.SelfInteraction {
		for _, k := range b.Particles {
			if k != h {
				fn(&g.particles[k])
			}
		}
	}
	for _, n := range b.Neighbors {
		for _, k := range g.blocks[n].Particles {
			fn(&g.particles[k])
		}
	}
}

func (b *Block) IncDensity(g *Grid, h int) {
	p := &g.particles[h]
	b.visit(g, h, func(q *physics.Particle) {
		physics.AccumulateDensity(p, q, g.c)
	})
}

func (b *Block) AccelerationTransfer(g *Grid, h int) {
	p := &g.particles[h]
	b.visit(g, h, func(q *physics.Particle) {
		physics.TransferAcceleration(p, q, g.c)
	})
}

func (b *Block) BoxCollisions(g *Grid, h int) {
	physics.BoxCollision(&g.particles[h], g.c)
}

func (b *Block) ParticleMotion(g *Grid, h int) {
	g.motion.Step(&g.particles[h])
}

func (b *Block) BoundaryCollisions(g *Grid, h int) {
	physics.BoundaryCollision(&g.particles[h], g.c)
}
