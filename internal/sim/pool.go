package sim

import (
	"sync"

	"github.com/san-kum/fluidsim/internal/physics"
)

// ParticlePool recycles particle buffers, mainly the scratch space of
// MergeSort.
type ParticlePool struct {
	pool sync.Pool
}

func NewParticlePool() *ParticlePool {
	return &ParticlePool{
		pool: sync.Pool{
			New: func() any {
				buf := make([]physics.Particle, 0)
				return &buf
			},
		},
	}
}

// Get returns a buffer of length n. Its contents are unspecified.
func (p *ParticlePool) Get(n int) *[]physics.Particle {
	buf := p.pool.Get().(*[]physics.Particle)
	if cap(*buf) < n {
		*buf = make([]physics.Particle, n)
	}
	*buf = (*buf)[:n]
	return buf
}

func (p *ParticlePool) Put(buf *[]physics.Particle) {
	*buf = (*buf)[:0]
	p.pool.Put(buf)
}

var scratch = NewParticlePool()
