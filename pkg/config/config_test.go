package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the defaults validate and carry the expected
// observation parameters.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
	if cfg.Source.Redshift != 0.2 {
		t.Errorf("Expected default redshift 0.2, got %g", cfg.Source.Redshift)
	}
	if cfg.Sampling.Area != 3.0e4 {
		t.Errorf("Expected default sampling area 3.0e4 cm^2, got %g", cfg.Sampling.Area)
	}
	if cfg.Instrument.ExposureTime > cfg.Sampling.ExposureTime {
		t.Errorf("Default observed exposure exceeds the sampling exposure")
	}
	if cfg.Model.Name != "apec" || cfg.Model.AbsorbModel != "wabs" {
		t.Errorf("Unexpected default models: %q, %q", cfg.Model.Name, cfg.Model.AbsorbModel)
	}
}

// TestLoadMissingFile verifies a missing path falls back to defaults.
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Instrument.Name != "hdxi" {
		t.Errorf("Expected default instrument, got %q", cfg.Instrument.Name)
	}
}

// TestSaveLoadRoundTrip writes a modified config and reloads it.
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "pipeline.yaml")
	cfg := DefaultConfig()
	cfg.Source.Redshift = 0.1
	cfg.Instrument.Name = "wfi"
	cfg.Sampling.Seed = 99
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Source.Redshift != 0.1 {
		t.Errorf("Redshift did not round-trip: %g", got.Source.Redshift)
	}
	if got.Instrument.Name != "wfi" {
		t.Errorf("Instrument did not round-trip: %q", got.Instrument.Name)
	}
	if got.Sampling.Seed != 99 {
		t.Errorf("Seed did not round-trip: %d", got.Sampling.Seed)
	}
}

// TestLoadRejectsInvalid verifies a config with a bad value is refused.
func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	yaml := "source:\n  redshift: -1.0\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Writing test config failed: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("Expected error loading a config with a negative redshift")
	}
}

// TestValidateCases exercises the validation guards one by one.
func TestValidateCases(t *testing.T) {
	mutate := []func(*Config){
		func(c *Config) { c.Source.Redshift = 0 },
		func(c *Config) { c.Source.GridSize = 1 },
		func(c *Config) { c.Source.SphereRadius = -5 },
		func(c *Config) { c.Model.Emax = c.Model.Emin },
		func(c *Config) { c.Sampling.Area = 0 },
		func(c *Config) { c.Instrument.ExposureTime = 0 },
		func(c *Config) { c.Instrument.ExposureTime = c.Sampling.ExposureTime * 2 },
		func(c *Config) { c.Sky.ProjectionAxis = "w" },
		func(c *Config) { c.Sky.Dec = 90.0 },
		func(c *Config) { c.Sky.Dec = -95.0 },
		func(c *Config) { c.Output.ImageSize = 0 },
		func(c *Config) { c.Output.SpectrumEmax = 0.1 },
	}
	for i, f := range mutate {
		cfg := DefaultConfig()
		f(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("Case %d: expected a validation error", i)
		}
	}
}
