package photons

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rainerweinberger/soxs/pkg/cosmology"
	"github.com/rainerweinberger/soxs/pkg/dataset"
	"github.com/rainerweinberger/soxs/pkg/spectra"
)

func testCells(t *testing.T) []dataset.Cell {
	t.Helper()
	g, err := dataset.DemoCluster(16, 1000.0)
	if err != nil {
		t.Fatalf("DemoCluster returned error: %v", err)
	}
	cells, err := g.SelectSphere(dataset.Sphere{Radius: 300.0})
	if err != nil {
		t.Fatalf("SelectSphere returned error: %v", err)
	}
	return cells
}

func testModel(t *testing.T) *spectra.ThermalModel {
	t.Helper()
	m, err := spectra.NewThermalModel("apec", 0.2, 10.0, 1000, false)
	if err != nil {
		t.Fatalf("NewThermalModel returned error: %v", err)
	}
	return m
}

// TestGenerate draws a sample and checks its bookkeeping and geometry.
func TestGenerate(t *testing.T) {
	cells := testCells(t)
	gen, err := NewGenerator(testModel(t), cosmology.Default(), Params{
		ExposureTime: 5.0e5,
		Area:         3.0e4,
		Redshift:     0.2,
		NumCores:     2,
		Seed:         37,
	})
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	list, err := gen.Generate(cells)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if list.NPhotons() == 0 {
		t.Fatalf("Expected a nonzero photon sample")
	}
	if len(list.Positions) != list.NPhotons() {
		t.Fatalf("Energies and positions disagree: %d vs %d",
			list.NPhotons(), len(list.Positions))
	}
	if len(list.PerCell) != len(cells) {
		t.Fatalf("Expected per-cell counts for %d cells, got %d", len(cells), len(list.PerCell))
	}
	total := 0
	for _, n := range list.PerCell {
		total += n
	}
	if total != list.NPhotons() {
		t.Errorf("Per-cell counts sum to %d, sample has %d photons", total, list.NPhotons())
	}
	if list.DistA < 600 || list.DistA > 750 {
		t.Errorf("Angular diameter distance %g Mpc outside the expected range for z=0.2", list.DistA)
	}
	// Photons must come from inside the selected sphere, padded by a cell.
	maxR := 300.0 + 1000.0/16.0
	for _, p := range list.Positions {
		if r3.Norm(p) > maxR {
			t.Fatalf("Photon emitted at %+v, outside the region", p)
		}
	}
	for _, e := range list.Energies {
		if e < 0.2 || e > 10.0 {
			t.Fatalf("Photon energy %g outside the spectral grid", e)
		}
	}
}

// TestGenerateScalesWithExposure verifies the sample grows linearly with the
// sampling exposure, within Poisson scatter.
func TestGenerateScalesWithExposure(t *testing.T) {
	cells := testCells(t)
	model := testModel(t)
	counts := make([]float64, 2)
	for i, texp := range []float64{1.0e5, 2.0e5} {
		gen, err := NewGenerator(model, nil, Params{
			ExposureTime: texp,
			Area:         3.0e4,
			Redshift:     0.2,
			NumCores:     1,
			Seed:         99,
		})
		if err != nil {
			t.Fatalf("NewGenerator returned error: %v", err)
		}
		list, err := gen.Generate(cells)
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		counts[i] = float64(list.NPhotons())
	}
	if counts[0] < 100 {
		t.Fatalf("Sample too small to test scaling: %g photons", counts[0])
	}
	ratio := counts[1] / counts[0]
	if math.Abs(ratio-2.0) > 0.2 {
		t.Errorf("Expected ~2x photons for 2x exposure, got ratio %g", ratio)
	}
}

// TestGenerateReproducible verifies fixed-seed determinism at one worker.
func TestGenerateReproducible(t *testing.T) {
	cells := testCells(t)
	model := testModel(t)
	var first *List
	for i := 0; i < 2; i++ {
		gen, _ := NewGenerator(model, nil, Params{
			ExposureTime: 1.0e5,
			Area:         3.0e4,
			Redshift:     0.2,
			NumCores:     1,
			Seed:         7,
		})
		list, err := gen.Generate(cells)
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if first == nil {
			first = list
			continue
		}
		if list.NPhotons() != first.NPhotons() {
			t.Fatalf("Counts differ across runs: %d vs %d", list.NPhotons(), first.NPhotons())
		}
		for j := range list.Energies {
			if list.Energies[j] != first.Energies[j] {
				t.Fatalf("Energy %d differs across runs", j)
			}
		}
	}
}

// TestNewGeneratorValidation exercises the parameter checks.
func TestNewGeneratorValidation(t *testing.T) {
	model := testModel(t)
	cases := []Params{
		{ExposureTime: 0, Area: 1e4, Redshift: 0.2},
		{ExposureTime: 1e5, Area: 0, Redshift: 0.2},
		{ExposureTime: 1e5, Area: 1e4, Redshift: 0},
	}
	for i, p := range cases {
		if _, err := NewGenerator(model, nil, p); err == nil {
			t.Errorf("Case %d: expected parameter validation error", i)
		}
	}
	if _, err := NewGenerator(nil, nil, Params{ExposureTime: 1e5, Area: 1e4, Redshift: 0.2}); err == nil {
		t.Errorf("Expected error for nil model")
	}

	gen, _ := NewGenerator(model, nil, Params{ExposureTime: 1e5, Area: 1e4, Redshift: 0.2})
	if _, err := gen.Generate(nil); err == nil {
		t.Errorf("Expected error for empty cell list")
	}
}
