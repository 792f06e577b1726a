package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/integrators"
	"github.com/san-kum/fluidsim/internal/physics"
)

// Index identifies a block by its position along each axis.
type Index struct {
	X, Y, Z int
}

type Options struct {
	// SelfInteraction makes the pair passes also visit the particles of the
	// reference particle's own block.
	SelfInteraction bool
}

// Grid partitions the simulation box into blocks of roughly one smoothing
// length per side. It owns the particle arena; blocks only hold handles into
// it, so every pass sees the same particle values.
type Grid struct {
	c      *physics.Constants
	opts   Options
	motion *integrators.Leapfrog

	counts [3]int
	size   [3]float64
	area   int

	blocks    []Block
	particles []physics.Particle
}

func New(c *physics.Constants, opts Options) *Grid {
	g := &Grid{
		c:      c,
		opts:   opts,
		motion: integrators.NewLeapfrog(c.TimeStep),
	}

	for a := 0; a < 3; a++ {
		extent := c.Extent(a)
		n := 1
		if ratio := math.Floor(extent / c.H); ratio > 1 {
			n = int(ratio)
		}
		g.counts[a] = n
		g.size[a] = extent / float64(n)
	}
	g.area = g.counts[0] * g.counts[1]

	g.blocks = make([]Block, g.area*g.counts[2])
	for i := range g.blocks {
		g.blocks[i].Index = g.coords(i)
	}
	return g
}

func (g *Grid) Constants() *physics.Constants { return g.c }

// Counts returns the number of blocks along each axis.
func (g *Grid) Counts() [3]int { return g.counts }

// BlockSize returns the block edge length along each axis.
func (g *Grid) BlockSize() [3]float64 { return g.size }

func (g *Grid) NumBlocks() int { return len(g.blocks) }

func (g *Grid) Len() int { return len(g.particles) }

// Arena exposes the particle storage. Callers must not append to it.
func (g *Grid) Arena() []physics.Particle { return g.particles }

func (g *Grid) flat(idx Index) int {
	return idx.X + idx.Y*g.counts[0] + idx.Z*g.area
}

func (g *Grid) coords(i int) Index {
	return Index{
		X: i % g.counts[0],
		Y: (i % g.area) / g.counts[0],
		Z: i / g.area,
	}
}

// Contains reports whether idx lies inside the grid.
func (g *Grid) Contains(idx Index) bool {
	return idx.X >= 0 && idx.Y >= 0 && idx.Z >= 0 &&
		idx.X < g.counts[0] && idx.Y < g.counts[1] && idx.Z < g.counts[2]
}

// Block returns the block at idx, or nil if idx is outside the grid.
func (g *Grid) Block(idx Index) *Block {
	if !g.Contains(idx) {
		return nil
	}
	return &g.blocks[g.flat(idx)]
}

// IndexFor maps a position to its block. The position is clamped into the
// box first, and the result is clamped into the grid, so particles that left
// the box are looked up as if they sat on the wall.
func (g *Grid) IndexFor(pos physics.Vec3f) Index {
	var idx [3]int
	for a := 0; a < 3; a++ {
		x := float64(pos[a])
		switch {
		case math.IsNaN(x), x < g.c.Lower[a]:
			x = g.c.Lower[a]
		case x > g.c.Upper[a]:
			x = g.c.Upper[a]
		}

		i := int(math.Floor((x - g.c.Lower[a]) / g.size[a]))
		if i < 0 {
			i = 0
		} else if i > g.counts[a]-1 {
			i = g.counts[a] - 1
		}
		idx[a] = i
	}
	return Index{X: idx[0], Y: idx[1], Z: idx[2]}
}

// Load takes ownership of ps, buckets every particle and links the blocks.
func (g *Grid) Load(ps []physics.Particle) {
	g.particles = ps
	for i := range g.blocks {
		g.blocks[i].Particles = g.blocks[i].Particles[:0]
	}
	for h := range g.particles {
		g.Assign(h)
	}
	g.Link()
}

var ErrMembership = errors.New("grid: membership does not fit grid")

// Membership returns a copy of every block's particle handles, in flat block
// order.
func (g *Grid) Membership() [][]int {
	out := make([][]int, len(g.blocks))
	for i := range g.blocks {
		out[i] = append([]int(nil), g.blocks[i].Particles...)
	}
	return out
}

// LoadMembership is like Load but restores block membership recorded by
// Membership instead of deriving it from positions.
func (g *Grid) LoadMembership(ps []physics.Particle, m [][]int) error {
	if len(m) != len(g.blocks) {
		return fmt.Errorf("%w: %d blocks, grid has %d", ErrMembership, len(m), len(g.blocks))
	}
	for i, hs := range m {
		for _, h := range hs {
			if h < 0 || h >= len(ps) {
				return fmt.Errorf("%w: block %d holds handle %d of %d", ErrMembership, i, h, len(ps))
			}
		}
	}

	g.particles = ps
	for i := range g.blocks {
		g.blocks[i].Particles = append(g.blocks[i].Particles[:0], m[i]...)
	}
	g.Link()
	return nil
}

// Assign inserts the arena particle h into the block its position maps to.
func (g *Grid) Assign(h int) {
	b := &g.blocks[g.flat(g.IndexFor(g.particles[h].Position))]
	b.Particles = append(b.Particles, h)
}

// Rebucket recomputes block membership from the current positions. Particles
// are re-inserted in arena order.
func (g *Grid) Rebucket() {
	for i := range g.blocks {
		g.blocks[i].Particles = g.blocks[i].Particles[:0]
	}
	for h := range g.particles {
		g.Assign(h)
	}
}

// Neighbors returns the indices of the blocks sharing a face, edge or corner
// with idx. Offsets are enumerated x-major from -1 to 1, skipping idx itself.
func (g *Grid) Neighbors(idx Index) []Index {
	out := make([]Index, 0, 26)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				n := Index{X: idx.X + dx, Y: idx.Y + dy, Z: idx.Z + dz}
				if g.Contains(n) {
					out = append(out, n)
				}
			}
		}
	}
	return out
}

// Link computes the neighbor list of every block. Topology is fixed for the
// lifetime of the grid.
func (g *Grid) Link() {
	for i := range g.blocks {
		b := &g.blocks[i]
		ns := g.Neighbors(b.Index)
		b.Neighbors = b.Neighbors[:0]
		for _, n := range ns {
			b.Neighbors = append(b.Neighbors, g.flat(n))
		}
	}
}

// ForEach visits every particle, block by block in flat order and in insertion
// order within a block.
func (g *Grid) ForEach(fn func(b *Block, h int)) {
	for i := range g.blocks {
		b := &g.blocks[i]
		for _, h := range b.Particles {
			fn(b, h)
		}
	}
}

// Particles returns a copy of all particles in block order.
func (g *Grid) Particles() []physics.Particle {
	out := make([]physics.Particle, 0, len(g.particles))
	g.ForEach(func(_ *Block, h int) {
		out = append(out, g.particles[h])
	})
	return out
}
