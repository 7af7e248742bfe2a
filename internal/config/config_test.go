package config

import (
	"math"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Sims != DefaultSims || cfg.Points != DefaultPoints {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"stop before start", func(c *Config) { c.Stop = -1 }},
		{"stop equals start", func(c *Config) { c.Stop = c.Start }},
		{"too few points", func(c *Config) { c.Points = 1 }},
		{"no trajectories", func(c *Config) { c.Sims = 0 }},
		{"bad mode", func(c *Config) { c.Mode = "warp" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestTspan(t *testing.T) {
	cfg := &Config{Start: 0, Stop: 10, Points: 101}
	ts := cfg.Tspan()
	if len(ts) != 101 {
		t.Fatalf("len = %d, want 101", len(ts))
	}
	if ts[0] != 0 || ts[100] != 10 {
		t.Errorf("endpoints = %g, %g", ts[0], ts[100])
	}
	if math.Abs(ts[1]-0.1) > 1e-12 {
		t.Errorf("ts[1] = %g, want 0.1", ts[1])
	}
	for k := 1; k < len(ts); k++ {
		if ts[k] <= ts[k-1] {
			t.Fatalf("grid not strictly ascending at %d", k)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	want := DefaultConfig()
	want.Sims = 2000
	want.Mode = "step"
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Sims != 2000 || got.Mode != "step" || got.Stop != want.Stop {
		t.Errorf("round trip = %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := DefaultConfig()
	cfg.Points = 1
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error on load")
	}
}
