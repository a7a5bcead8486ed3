package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// TestDemoClusterProfiles verifies the radial structure of the synthetic
// cluster: density and temperature decline outward, metallicity is centrally
// enhanced.
func TestDemoClusterProfiles(t *testing.T) {
	g, err := DemoCluster(32, 1000.0)
	if err != nil {
		t.Fatalf("DemoCluster returned error: %v", err)
	}
	if g.NCells() != 32*32*32 {
		t.Fatalf("Expected 32768 cells, got %d", g.NCells())
	}

	mid := 16
	center := g.Density[g.Index(mid, mid, mid)]
	edge := g.Density[g.Index(0, mid, mid)]
	if center <= edge {
		t.Errorf("Density does not decline outward: center %g, edge %g", center, edge)
	}
	if g.Temperature[g.Index(mid, mid, mid)] <= g.Temperature[g.Index(0, mid, mid)] {
		t.Errorf("Temperature does not decline outward")
	}
	if g.Metallicity[g.Index(mid, mid, mid)] <= g.Metallicity[g.Index(0, mid, mid)] {
		t.Errorf("Metallicity is not centrally enhanced")
	}
}

// TestCellCenter checks the coordinate convention (origin at box center).
func TestCellCenter(t *testing.T) {
	g, _ := NewGrid(10, 10, 10, 1000.0)
	c := g.CellCenter(0, 0, 0)
	if math.Abs(c.X+450.0) > 1e-9 || math.Abs(c.Y+450.0) > 1e-9 || math.Abs(c.Z+450.0) > 1e-9 {
		t.Errorf("Expected first cell center at (-450, -450, -450), got %+v", c)
	}
	c = g.CellCenter(9, 9, 9)
	if math.Abs(c.X-450.0) > 1e-9 {
		t.Errorf("Expected last cell center at 450 kpc, got %g", c.X)
	}
}

// TestSelectSphere verifies the region selection bounds and the derived
// particle densities.
func TestSelectSphere(t *testing.T) {
	g, _ := DemoCluster(32, 1000.0)
	cells, err := g.SelectSphere(Sphere{Radius: 250.0})
	if err != nil {
		t.Fatalf("SelectSphere returned error: %v", err)
	}
	// The sphere volume fraction of the box is 4/3*pi*0.25^3 ~ 6.5%.
	frac := float64(len(cells)) / float64(g.NCells())
	if frac < 0.05 || frac > 0.08 {
		t.Errorf("Unexpected selected cell fraction %g", frac)
	}
	for _, c := range cells {
		if r3.Norm(c.Center) > 250.0 {
			t.Fatalf("Cell at %+v lies outside the sphere", c.Center)
		}
		if c.ElectronDensity <= 0 || c.HDensity <= 0 {
			t.Fatalf("Non-positive particle density in cell: %+v", c)
		}
		if c.ElectronDensity <= c.HDensity {
			t.Fatalf("Expected ne > nH for ionized plasma, got %g <= %g",
				c.ElectronDensity, c.HDensity)
		}
		if c.EmissionMeasure() <= 0 {
			t.Fatalf("Non-positive emission measure")
		}
	}

	if _, err := g.SelectSphere(Sphere{Radius: -1.0}); err == nil {
		t.Errorf("Expected error for negative radius")
	}
	if _, err := g.SelectSphere(Sphere{Center: r3.Vec{X: 1e6}, Radius: 10.0}); err == nil {
		t.Errorf("Expected error for empty selection")
	}
}

// TestSlice verifies slice dimensions and central values.
func TestSlice(t *testing.T) {
	g, _ := DemoCluster(16, 800.0)
	for _, axis := range []string{"x", "y", "z"} {
		plane, w, h, err := g.Slice(FieldDensity, axis)
		if err != nil {
			t.Fatalf("Slice(%s) returned error: %v", axis, err)
		}
		if w != 16 || h != 16 || len(plane) != 256 {
			t.Errorf("Slice(%s): expected 16x16 plane, got %dx%d (%d values)", axis, w, h, len(plane))
		}
	}
	if _, _, _, err := g.Slice("entropy", "z"); err == nil {
		t.Errorf("Expected error for unknown field")
	}
	if _, _, _, err := g.Slice(FieldDensity, "w"); err == nil {
		t.Errorf("Expected error for invalid axis")
	}
}

// TestSnapshotRoundTrip writes a snapshot to disk and loads it back.
func TestSnapshotRoundTrip(t *testing.T) {
	g, _ := DemoCluster(8, 500.0)
	path := filepath.Join(t.TempDir(), "cluster.snap")
	if err := g.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.NX != 8 || got.Width != 500.0 {
		t.Errorf("Header did not round-trip: %dx%dx%d width %g", got.NX, got.NY, got.NZ, got.Width)
	}
	for i := range g.Density {
		if got.Density[i] != g.Density[i] ||
			got.Temperature[i] != g.Temperature[i] ||
			got.Metallicity[i] != g.Metallicity[i] {
			t.Fatalf("Field data did not round-trip at cell %d", i)
		}
	}
}

// TestLoadRejectsGarbage verifies the magic check.
func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.snap")
	if err := writeGarbage(path); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("Expected error loading a non-snapshot file")
	}
}

func writeGarbage(path string) error {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return os.WriteFile(path, data, 0644)
}
