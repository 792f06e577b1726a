package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/fluidsim/internal/physics"
)

func moving(vx, vy, vz float32) physics.Particle {
	return physics.Particle{Velocity: physics.Vec3f{vx, vy, vz}}
}

func TestKineticEnergy(t *testing.T) {
	m := NewKineticEnergy(2.0)

	m.Observe(1, []physics.Particle{moving(3, 4, 0), moving(0, 0, 1)})
	if math.Abs(m.Last()-26) > 1e-9 {
		t.Errorf("expected energy 26, got %f", m.Last())
	}

	m.Observe(2, []physics.Particle{moving(0, 0, 0)})
	if m.Last() != 0 {
		t.Errorf("expected zero energy at rest, got %f", m.Last())
	}
	if math.Abs(m.Value()-13) > 1e-9 {
		t.Errorf("expected mean energy 13, got %f", m.Value())
	}
}

func TestKineticEnergyReset(t *testing.T) {
	m := NewKineticEnergy(1.0)

	m.Observe(1, []physics.Particle{moving(1, 1, 1)})
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift(1.0, physics.Vec3{0, -10, 0})

	p := physics.Particle{Position: physics.Vec3f{0, 1, 0}}
	if e := m.Energy([]physics.Particle{p}); math.Abs(e-10) > 1e-9 {
		t.Errorf("expected potential energy 10, got %f", e)
	}

	m.Observe(1, []physics.Particle{p})
	if m.Value() != 0 {
		t.Errorf("expected no drift after one sample, got %f", m.Value())
	}

	// Falling to y=0.5 while gaining v^2 = 10 conserves energy.
	fallen := physics.Particle{
		Position: physics.Vec3f{0, 0.5, 0},
		Velocity: physics.Vec3f{0, float32(-math.Sqrt(10)), 0},
	}
	m.Observe(2, []physics.Particle{fallen})
	if m.Value() > 1e-6 {
		t.Errorf("expected conserved energy, got drift %f", m.Value())
	}

	m.Observe(3, []physics.Particle{{Position: physics.Vec3f{0, 0.5, 0}}})
	if math.Abs(m.Last()-0.5) > 1e-6 {
		t.Errorf("expected drift 0.5, got %f", m.Last())
	}

	m.Reset()
	if m.Value() != 0 || m.Last() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestMaxSpeed(t *testing.T) {
	m := NewMaxSpeed()

	m.Observe(1, []physics.Particle{moving(3, 4, 0), moving(1, 0, 0)})
	if math.Abs(m.Last()-5) > 1e-9 {
		t.Errorf("expected max speed 5, got %f", m.Last())
	}

	m.Observe(2, []physics.Particle{moving(0, 1, 0)})
	if math.Abs(m.Last()-1) > 1e-9 {
		t.Errorf("expected max speed 1, got %f", m.Last())
	}
	if math.Abs(m.Value()-5) > 1e-9 {
		t.Errorf("expected run max 5, got %f", m.Value())
	}

	m.Observe(3, nil)
	if m.Last() != 0 {
		t.Errorf("expected 0 for empty step, got %f", m.Last())
	}
}

func TestMeanDensity(t *testing.T) {
	m := NewMeanDensity()

	m.Observe(1, []physics.Particle{{Density: 1000}, {Density: 1200}})
	if m.Last() != 1100 {
		t.Errorf("expected mean density 1100, got %f", m.Last())
	}

	m.Observe(2, []physics.Particle{{Density: 900}})
	if m.Value() != 1000 {
		t.Errorf("expected run mean 1000, got %f", m.Value())
	}
}

func TestContainment(t *testing.T) {
	m := NewContainment(physics.DefaultLowerBound, physics.DefaultUpperBound)
	if m.Value() != 1 {
		t.Errorf("expected 1 before any sample, got %f", m.Value())
	}

	tests := []struct {
		name string
		pos  physics.Vec3f
		want float64
	}{
		{"inside", physics.Vec3f{0, 0, 0}, 1},
		{"on wall", physics.Vec3f{-0.06, -0.08, 0.06}, 1},
		{"below floor", physics.Vec3f{0, -0.2, 0}, 0},
		{"NaN", physics.Vec3f{float32(math.NaN()), 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Reset()
			m.Observe(1, []physics.Particle{{Position: tt.pos}})
			if m.Last() != tt.want {
				t.Errorf("expected %f, got %f", tt.want, m.Last())
			}
		})
	}

	m.Reset()
	m.Observe(1, []physics.Particle{{}})
	m.Observe(2, []physics.Particle{{Position: physics.Vec3f{1, 0, 0}}})
	if m.Value() != 0.5 {
		t.Errorf("expected containment 0.5, got %f", m.Value())
	}
}
