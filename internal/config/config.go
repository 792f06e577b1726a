package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluidsim/internal/physics"
)

const (
	DefaultSteps   = 5
	DefaultDataDir = "runs"
)

type Config struct {
	Steps      int           `yaml:"steps"`
	Input      string        `yaml:"input"`
	Output     string        `yaml:"output"`
	DataDir    string        `yaml:"data_dir"`
	Checkpoint string        `yaml:"checkpoint"`
	Physics    PhysicsConfig `yaml:"physics"`
	Engine     EngineConfig  `yaml:"engine"`
}

type PhysicsConfig struct {
	RadiusMultiplier    float64    `yaml:"radius_multiplier"`
	FluidDensity        float64    `yaml:"fluid_density"`
	StiffnessPressure   float64    `yaml:"stiffness_pressure"`
	StiffnessCollisions float64    `yaml:"stiffness_collisions"`
	Damping             float64    `yaml:"damping"`
	Viscosity           float64    `yaml:"viscosity"`
	ParticleSize        float64    `yaml:"particle_size"`
	TimeStep            float64    `yaml:"time_step"`
	Gravity             [3]float64 `yaml:"gravity,flow"`
	Lower               [3]float64 `yaml:"lower,flow"`
	Upper               [3]float64 `yaml:"upper,flow"`
}

type EngineConfig struct {
	Rebucket        bool `yaml:"rebucket"`
	SelfInteraction bool `yaml:"self_interaction"`
	ValidateState   bool `yaml:"validate_state"`
}

func DefaultPhysics() PhysicsConfig {
	p := physics.DefaultParams()
	return PhysicsConfig{
		RadiusMultiplier:    p.RadiusMultiplier,
		FluidDensity:        p.FluidDensity,
		StiffnessPressure:   p.StiffnessPressure,
		StiffnessCollisions: p.StiffnessCollisions,
		Damping:             p.Damping,
		Viscosity:           p.Viscosity,
		ParticleSize:        p.ParticleSize,
		TimeStep:            p.TimeStep,
		Gravity:             p.Gravity,
		Lower:               p.Lower,
		Upper:               p.Upper,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Steps:   DefaultSteps,
		DataDir: DefaultDataDir,
		Physics: DefaultPhysics(),
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base. Keys missing from the file keep the
// values of base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, err
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params converts the physics section to simulation parameters.
func (c *Config) Params() physics.Params {
	p := c.Physics
	return physics.Params{
		RadiusMultiplier:    p.RadiusMultiplier,
		FluidDensity:        p.FluidDensity,
		StiffnessPressure:   p.StiffnessPressure,
		StiffnessCollisions: p.StiffnessCollisions,
		Damping:             p.Damping,
		Viscosity:           p.Viscosity,
		ParticleSize:        p.ParticleSize,
		TimeStep:            p.TimeStep,
		Gravity:             p.Gravity,
		Lower:               p.Lower,
		Upper:               p.Upper,
	}
}

func (c *Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", c.Steps)
	}
	if c.Physics.TimeStep <= 0 {
		return fmt.Errorf("time_step must be positive, got %g", c.Physics.TimeStep)
	}
	if c.Physics.RadiusMultiplier <= 0 {
		return fmt.Errorf("radius_multiplier must be positive, got %g", c.Physics.RadiusMultiplier)
	}
	for a := 0; a < 3; a++ {
		if c.Physics.Lower[a] >= c.Physics.Upper[a] {
			return fmt.Errorf("box bound %d: lower %g must be below upper %g", a, c.Physics.Lower[a], c.Physics.Upper[a])
		}
	}
	return nil
}
