package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fluidsim/internal/grid"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

type countingMetric struct {
	observed int
	last     float64
}

func (m *countingMetric) Name() string { return "count" }

func (m *countingMetric) Observe(step int, ps []physics.Particle) {
	m.observed++
	m.last = float64(step)
}

func (m *countingMetric) Last() float64  { return m.last }
func (m *countingMetric) Value() float64 { return float64(m.observed) }
func (m *countingMetric) Reset()         { m.observed, m.last = 0, 0 }

type recorder struct {
	steps []int
}

func (r *recorder) OnStep(step int, ps []physics.Particle) {
	r.steps = append(r.steps, step)
}

func particle(id int, x, y, z float32) physics.Particle {
	return physics.NewParticle(id, physics.Vec3f{x, y, z}, physics.Vec3f{}, physics.Vec3f{}, physics.DefaultGravity)
}

func newEngine(ppm float64, cfg sim.Config, ps ...physics.Particle) *sim.Engine {
	c := physics.NewConstants(physics.DefaultParams(), ppm)
	g := grid.New(c, grid.Options{})
	g.Load(ps)
	return sim.New(g, cfg)
}

var _ = Describe("Engine", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with a single block", func() {
		var engine *sim.Engine

		BeforeEach(func() {
			engine = newEngine(10, sim.Config{},
				particle(0, 0, 0, 0),
				particle(1, 0.01, 0.02, 0.03),
			)
		})

		It("applies only gravity and integration", func() {
			res, err := engine.Run(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(3))
			Expect(res.Errors).To(BeEmpty())

			for _, p := range engine.Grid().Arena() {
				Expect(p.Acceleration).To(Equal(physics.DefaultGravity))
				Expect(float64(p.HalfVelocity[1])).To(BeNumerically("~", -0.0294, 1e-6))
				Expect(p.HalfVelocity[0]).To(BeZero())
				Expect(p.Density).To(BeZero())
			}
		})

		It("keeps density across steps", func() {
			engine.Grid().Arena()[0].Density = 5
			Expect(engine.Step()).To(Succeed())
			Expect(engine.Grid().Arena()[0].Density).To(Equal(5.0))
		})

		It("counts steps from StartStep", func() {
			resumed := newEngine(10, sim.Config{StartStep: 7}, particle(0, 0, 0, 0))
			Expect(resumed.StepCount()).To(Equal(7))
			Expect(resumed.Step()).To(Succeed())
			Expect(resumed.StepCount()).To(Equal(8))
		})

		It("rejects a negative step count", func() {
			_, err := engine.Run(ctx, -1)
			Expect(err).To(MatchError(sim.ErrInvalidSteps))
		})

		It("treats zero steps as a no-op", func() {
			before := append([]physics.Particle(nil), engine.Grid().Arena()...)
			res, err := engine.Run(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(BeZero())
			Expect(engine.Grid().Arena()).To(Equal(before))
		})

		It("stops between steps when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			res, err := engine.Run(canceled, 10)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(BeZero())
		})

		It("does not size the series by the requested step count", func() {
			engine.AddMetric(&countingMetric{})
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			res, err := engine.Run(canceled, math.MaxInt32)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(BeZero())
			Expect(cap(res.Series.Rows)).To(BeNumerically("<=", 1<<16))
			Expect(cap(res.Series.Steps)).To(BeNumerically("<=", 1<<16))
		})

		It("feeds metrics and observers after every step", func() {
			m := &countingMetric{}
			r := &recorder{}
			engine.AddMetric(m)
			engine.AddObserver(r)

			res, err := engine.Run(ctx, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics).To(HaveKeyWithValue("count", 4.0))
			Expect(r.steps).To(Equal([]int{1, 2, 3, 4}))
			Expect(res.Series.Names).To(Equal([]string{"count"}))
			Expect(res.Series.Len()).To(Equal(4))
			Expect(res.Series.Column("count")).To(Equal([]float64{1, 2, 3, 4}))
			Expect(res.Series.Column("missing")).To(BeNil())
		})
	})

	Context("with non-finite state", func() {
		nan := float32(math.NaN())

		It("propagates NaN by default", func() {
			engine := newEngine(10, sim.Config{}, particle(0, nan, 0, 0))
			res, err := engine.Run(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(2))
			Expect(res.Errors).To(BeEmpty())
		})

		It("stops with ErrInvalidState when validating", func() {
			engine := newEngine(10, sim.Config{ValidateState: true},
				particle(0, 0, 0, 0),
				particle(1, nan, 0, 0),
			)
			res, err := engine.Run(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(1))
			Expect(res.Errors).To(HaveLen(1))
			Expect(errors.Is(res.Errors[0], sim.ErrInvalidState)).To(BeTrue())

			var stepErr *sim.StepError
			Expect(errors.As(res.Errors[0], &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(1))
			Expect(stepErr.Particle).To(Equal(1))
		})
	})

	Context("with neighboring blocks", func() {
		It("transfers acceleration between particles in adjacent blocks", func() {
			engine := newEngine(100, sim.Config{},
				particle(0, 0.009, 0, 0),
				particle(1, 0.010, 0, 0),
			)
			Expect(engine.Step()).To(Succeed())

			p, q := engine.Grid().Arena()[0], engine.Grid().Arena()[1]
			Expect(p.Density).To(BeNumerically(">", 0))
			Expect(q.Density).To(BeNumerically(">", 0))
			Expect(p.Accelerated).To(BeTrue())
			Expect(q.Accelerated).To(BeTrue())
			Expect(p.Acceleration[0]).To(Equal(-q.Acceleration[0]))
		})

		It("leaves particles in their first block unless rebucketing", func() {
			moving := func() physics.Particle {
				p := particle(0, 0.009, 0, 0)
				p.HalfVelocity[0] = 10
				return p
			}

			fixed := newEngine(100, sim.Config{}, moving())
			Expect(fixed.Step()).To(Succeed())
			Expect(fixed.Step()).To(Succeed())
			Expect(fixed.Grid().Block(grid.Index{X: 3, Y: 4, Z: 3}).Particles).To(ConsistOf(0))

			rebucketed := newEngine(100, sim.Config{Rebucket: true}, moving())
			Expect(rebucketed.Step()).To(Succeed())
			Expect(rebucketed.Step()).To(Succeed())
			Expect(rebucketed.Grid().Block(grid.Index{X: 3, Y: 4, Z: 3}).Particles).To(BeEmpty())
			Expect(rebucketed.Grid().Block(grid.Index{X: 4, Y: 4, Z: 3}).Particles).To(ConsistOf(0))
		})
	})

	It("returns particles sorted by id", func() {
		engine := newEngine(100, sim.Config{},
			particle(0, 0.06, 0.09, 0.06),
			particle(1, -0.06, -0.07, -0.06),
			particle(2, 0, 0, 0),
		)
		sorted := engine.Sorted()
		Expect(sorted).To(HaveLen(3))
		for i, p := range sorted {
			Expect(p.ID).To(Equal(i))
		}
	})
})
