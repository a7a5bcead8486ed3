package pipeline

import (
	"os"
	"testing"

	"github.com/rainerweinberger/soxs/pkg/config"
	"github.com/rainerweinberger/soxs/pkg/fits"
	"github.com/rainerweinberger/soxs/pkg/simput"
)

// testConfig shrinks the default run so the full chain stays fast.
func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.GridSize = 12
	cfg.Model.NBins = 500
	cfg.Sampling.NumCores = 2
	cfg.Sampling.Seed = 5
	cfg.Output.Dir = t.TempDir()
	cfg.Output.ImageSize = 64
	cfg.Output.Verbose = false
	return cfg
}

// TestProcessEndToEnd runs the whole chain on a small demo dataset and
// checks every artifact appears and parses.
func TestProcessEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping the full pipeline in short mode")
	}
	p, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := p.Process(); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	stats := p.Stats()
	if stats.NCells == 0 {
		t.Errorf("Expected emitting cells in the selected region")
	}
	if stats.NPhotons == 0 {
		t.Errorf("Expected a non-empty photon sample")
	}
	if stats.NProjected == 0 || stats.NProjected > stats.NPhotons {
		t.Errorf("Projected count %d inconsistent with sample size %d",
			stats.NProjected, stats.NPhotons)
	}
	if stats.NDetected == 0 {
		t.Errorf("Expected detected events in the observation")
	}

	out := p.Artifacts()
	for _, path := range []string{
		out.DensityMap, out.TemperatureMap,
		out.SimputFile, out.EventFile, out.ImageFile, out.SpectrumFile,
		out.ImageFigure, out.SpectrumFigure,
	} {
		if path == "" {
			t.Fatalf("An artifact path was not recorded: %+v", out)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Artifact missing: %v", err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("Artifact %s is empty", path)
		}
	}

	evts, err := simput.Read(out.SimputFile)
	if err != nil {
		t.Fatalf("SIMPUT file does not parse: %v", err)
	}
	if evts.NEvents() != stats.NProjected {
		t.Errorf("SIMPUT holds %d photons, expected %d", evts.NEvents(), stats.NProjected)
	}

	hdus, err := fits.ReadFile(out.ImageFile)
	if err != nil {
		t.Fatalf("Image file does not parse: %v", err)
	}
	if len(hdus) < 2 || hdus[1].Image == nil {
		t.Fatalf("Image file has no image extension")
	}
	if hdus[1].Image.Sum() == 0 {
		t.Errorf("Counts image is empty")
	}
}

// TestNewRejectsInvalid verifies construction validates the configuration.
func TestNewRejectsInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Redshift = -0.5
	if _, err := New(cfg); err == nil {
		t.Errorf("Expected error for an invalid configuration")
	}
}
