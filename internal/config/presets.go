package config

import "sort"

func preset(apply func(c *Config)) *Config {
	c := DefaultConfig()
	apply(c)
	return c
}

// Presets are named engine setups. "reference" reproduces the classic
// behavior: membership fixed after loading and no own-block interactions.
var Presets = map[string]*Config{
	"reference": preset(func(c *Config) {}),
	"rebucket": preset(func(c *Config) {
		c.Engine.Rebucket = true
	}),
	"symmetric": preset(func(c *Config) {
		c.Engine.Rebucket = true
		c.Engine.SelfInteraction = true
	}),
	"strict": preset(func(c *Config) {
		c.Engine.ValidateState = true
	}),
}

// GetPreset returns a copy of the named preset, or nil if it does not exist.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
