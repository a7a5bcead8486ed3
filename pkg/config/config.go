// Package config provides configuration loading and management for the mock
// observation pipeline. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/rainerweinberger/soxs/internal/units"
)

// Config represents the pipeline configuration loaded from YAML
type Config struct {
	// Source parameters describe the simulated cluster and the region of
	// the dataset that emits
	Source struct {
		// SnapshotPath is the dataset snapshot to load; when empty, a
		// builtin demo cluster is generated instead
		SnapshotPath string `yaml:"snapshotPath"`

		// GridSize is the demo dataset side length in cells
		GridSize int `yaml:"gridSize"`

		// BoxWidth is the demo dataset side length in kpc
		BoxWidth float64 `yaml:"boxWidth"`

		// SphereRadius selects the emitting region around the box center, kpc
		SphereRadius float64 `yaml:"sphereRadius"`

		// Redshift places the source in the Hubble flow
		Redshift float64 `yaml:"redshift"`
	} `yaml:"source"`

	// Model parameters control the thermal emission spectrum
	Model struct {
		// Name selects the plasma emission model
		Name string `yaml:"name"`

		// Emin and Emax bound the model's energy grid in keV
		Emin float64 `yaml:"emin"`
		Emax float64 `yaml:"emax"`

		// NBins is the number of energy bins on the model grid
		NBins int `yaml:"nbins"`

		// Broadening enables thermal line broadening
		Broadening bool `yaml:"broadening"`

		// NH is the foreground absorbing column in 10^22 cm^-2
		NH float64 `yaml:"nH"`

		// AbsorbModel selects the foreground absorption model, wabs or tbabs
		AbsorbModel string `yaml:"absorbModel"`
	} `yaml:"model"`

	// Sampling parameters set the Monte Carlo photon budget
	Sampling struct {
		// ExposureTime is the sampling exposure in seconds
		ExposureTime float64 `yaml:"exposureTime"`

		// Area is the sampling collecting area in cm^2
		Area float64 `yaml:"area"`

		// NumCores specifies how many CPU cores to use for parallel sampling
		NumCores int `yaml:"numCores"`

		// Seed fixes the random streams for reproducible runs
		Seed uint64 `yaml:"seed"`
	} `yaml:"sampling"`

	// Sky parameters place the source on the sky
	Sky struct {
		// RA and Dec of the aim point in degrees
		RA  float64 `yaml:"ra"`
		Dec float64 `yaml:"dec"`

		// ProjectionAxis is the line of sight through the dataset: x, y, or z
		ProjectionAxis string `yaml:"projectionAxis"`
	} `yaml:"sky"`

	// Instrument parameters control the simulated observation
	Instrument struct {
		// Name selects a registered instrument
		Name string `yaml:"name"`

		// ExposureTime is the observed exposure in seconds; it must not
		// exceed the sampling exposure
		ExposureTime float64 `yaml:"exposureTime"`
	} `yaml:"instrument"`

	// Output parameters
	Output struct {
		// Dir is the directory all artifacts are written to
		Dir string `yaml:"dir"`

		// ImageEmin and ImageEmax bound the counts image band in keV
		ImageEmin float64 `yaml:"imageEmin"`
		ImageEmax float64 `yaml:"imageEmax"`

		// ImageSize is the counts image side length in pixels
		ImageSize int `yaml:"imageSize"`

		// SpectrumEmin and SpectrumEmax bound the spectrum figure in keV
		SpectrumEmin float64 `yaml:"spectrumEmin"`
		SpectrumEmax float64 `yaml:"spectrumEmax"`

		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Source.SnapshotPath = ""
	cfg.Source.GridSize = 64
	cfg.Source.BoxWidth = 1000.0
	cfg.Source.SphereRadius = 250.0
	cfg.Source.Redshift = 0.2

	cfg.Model.Name = "apec"
	cfg.Model.Emin = 0.1
	cfg.Model.Emax = 10.0
	cfg.Model.NBins = 2000
	cfg.Model.Broadening = true
	cfg.Model.NH = 0.04
	cfg.Model.AbsorbModel = "wabs"

	cfg.Sampling.ExposureTime = 5.0e5
	cfg.Sampling.Area = 3.0e4
	cfg.Sampling.NumCores = runtime.NumCPU()
	cfg.Sampling.Seed = 23

	cfg.Sky.RA = 30.0
	cfg.Sky.Dec = 45.0
	cfg.Sky.ProjectionAxis = "z"

	cfg.Instrument.Name = "hdxi"
	cfg.Instrument.ExposureTime = 1.0e5

	cfg.Output.Dir = "output"
	cfg.Output.ImageEmin = 0.5
	cfg.Output.ImageEmax = 2.0
	cfg.Output.ImageSize = 256
	cfg.Output.SpectrumEmin = 0.5
	cfg.Output.SpectrumEmax = 7.0
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the configuration for values the pipeline cannot run with
func (cfg *Config) Validate() error {
	if cfg.Source.Redshift <= 0 {
		return fmt.Errorf("source redshift must be positive, got %g", cfg.Source.Redshift)
	}
	if cfg.Source.SnapshotPath == "" && (cfg.Source.GridSize < 2 || cfg.Source.BoxWidth <= 0) {
		return fmt.Errorf("demo dataset needs a grid of at least 2 cells and a positive box width")
	}
	if cfg.Source.SphereRadius <= 0 {
		return fmt.Errorf("sphere radius must be positive, got %g kpc", cfg.Source.SphereRadius)
	}
	if cfg.Model.Emax <= cfg.Model.Emin || cfg.Model.NBins < 2 {
		return fmt.Errorf("bad model energy grid [%g, %g] keV with %d bins",
			cfg.Model.Emin, cfg.Model.Emax, cfg.Model.NBins)
	}
	if cfg.Sampling.ExposureTime <= 0 || cfg.Sampling.Area <= 0 {
		return fmt.Errorf("sampling budget must be positive")
	}
	if cfg.Instrument.ExposureTime <= 0 {
		return fmt.Errorf("instrument exposure must be positive, got %g s",
			cfg.Instrument.ExposureTime)
	}
	if cfg.Instrument.ExposureTime > cfg.Sampling.ExposureTime {
		return fmt.Errorf("instrument exposure %g s exceeds the sampling exposure %g s",
			cfg.Instrument.ExposureTime, cfg.Sampling.ExposureTime)
	}
	switch cfg.Sky.ProjectionAxis {
	case "x", "y", "z":
	default:
		return fmt.Errorf("projection axis must be x, y, or z, got %q", cfg.Sky.ProjectionAxis)
	}
	if math.Abs(cfg.Sky.Dec) > units.MaxDec {
		return fmt.Errorf("sky center Dec %g deg is outside the supported range [-%g, %g]",
			cfg.Sky.Dec, units.MaxDec, units.MaxDec)
	}
	if cfg.Output.ImageEmax <= cfg.Output.ImageEmin || cfg.Output.ImageSize < 1 {
		return fmt.Errorf("bad image band or size")
	}
	if cfg.Output.SpectrumEmax <= cfg.Output.SpectrumEmin {
		return fmt.Errorf("bad spectrum display band [%g, %g] keV",
			cfg.Output.SpectrumEmin, cfg.Output.SpectrumEmax)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
