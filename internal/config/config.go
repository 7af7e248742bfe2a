package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStop    = 10.0
	DefaultPoints  = 101
	DefaultSims    = 100
	DefaultThreads = 32
)

// Config is a saved run configuration. Model is a built-in preset name or a
// path to a model YAML file.
type Config struct {
	Model   string  `yaml:"model"`
	Start   float64 `yaml:"start"`
	Stop    float64 `yaml:"stop"`
	Points  int     `yaml:"points"`
	Sims    int     `yaml:"sims"`
	Threads int     `yaml:"threads"`
	Seed    int64   `yaml:"seed"`
	Mode    string  `yaml:"mode"`
	Verbose bool    `yaml:"verbose"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:   "decay",
		Start:   0,
		Stop:    DefaultStop,
		Points:  DefaultPoints,
		Sims:    DefaultSims,
		Threads: DefaultThreads,
		Mode:    "batch",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Stop <= c.Start {
		return fmt.Errorf("config: stop %g must exceed start %g", c.Stop, c.Start)
	}
	if c.Points < 2 {
		return fmt.Errorf("config: need at least 2 time points, got %d", c.Points)
	}
	if c.Sims <= 0 {
		return fmt.Errorf("config: sims must be positive, got %d", c.Sims)
	}
	if c.Mode != "batch" && c.Mode != "step" {
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	return nil
}

// Tspan expands the start/stop/points triple into the reporting grid shared
// by all trajectories.
func (c *Config) Tspan() []float64 {
	ts := make([]float64, c.Points)
	dt := (c.Stop - c.Start) / float64(c.Points-1)
	for i := range ts {
		ts[i] = c.Start + float64(i)*dt
	}
	ts[len(ts)-1] = c.Stop
	return ts
}
