// Package dataset provides access to 3D astrophysical simulation snapshots:
// loading and saving gridded gas fields, generating a synthetic galaxy
// cluster for demonstration runs, selecting spatial regions, and extracting
// 2D slices for visualization.
//
// A snapshot is a uniform Cartesian grid of gas density (g/cm^3), temperature
// (keV), and metallicity (solar units) over a cubic box. Coordinates are in
// kpc with the origin at the box center.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rainerweinberger/soxs/internal/units"
)

// Grid is a loaded simulation snapshot.
type Grid struct {
	// NX, NY, NZ are the cell counts along each axis.
	NX, NY, NZ int

	// Width is the box width in kpc. The box is cubic.
	Width float64

	// Density is the gas mass density in g/cm^3, row-major with x fastest.
	Density []float64

	// Temperature is the gas temperature in keV.
	Temperature []float64

	// Metallicity is the metal abundance in solar units.
	Metallicity []float64
}

// NewGrid allocates a zeroed snapshot grid.
func NewGrid(nx, ny, nz int, width float64) (*Grid, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%dx%d", nx, ny, nz)
	}
	if width <= 0 {
		return nil, fmt.Errorf("box width must be positive, got %g kpc", width)
	}
	n := nx * ny * nz
	return &Grid{
		NX: nx, NY: ny, NZ: nz,
		Width:       width,
		Density:     make([]float64, n),
		Temperature: make([]float64, n),
		Metallicity: make([]float64, n),
	}, nil
}

// NCells returns the total cell count.
func (g *Grid) NCells() int { return g.NX * g.NY * g.NZ }

// CellWidth returns the cell width in kpc along the x axis. Cells are cubic
// for cubic grids; non-cubic grids share the box width per axis.
func (g *Grid) CellWidth() float64 { return g.Width / float64(g.NX) }

// CellVolume returns the cell volume in cm^3.
func (g *Grid) CellVolume() float64 {
	dx := g.Width / float64(g.NX) * units.CmPerKpc
	dy := g.Width / float64(g.NY) * units.CmPerKpc
	dz := g.Width / float64(g.NZ) * units.CmPerKpc
	return dx * dy * dz
}

// Index returns the flat index of cell (i, j, k).
func (g *Grid) Index(i, j, k int) int {
	return k*g.NX*g.NY + j*g.NX + i
}

// CellCenter returns the center of cell (i, j, k) in kpc relative to the
// box center.
func (g *Grid) CellCenter(i, j, k int) r3.Vec {
	return r3.Vec{
		X: (float64(i)+0.5)/float64(g.NX)*g.Width - 0.5*g.Width,
		Y: (float64(j)+0.5)/float64(g.NY)*g.Width - 0.5*g.Width,
		Z: (float64(k)+0.5)/float64(g.NZ)*g.Width - 0.5*g.Width,
	}
}

// Cell is one simulation cell prepared for emission modeling, with the
// particle densities derived from the mass density.
type Cell struct {
	// Center is the cell center in kpc relative to the box center.
	Center r3.Vec

	// HalfWidth is half the cell width in kpc.
	HalfWidth float64

	// Volume is the cell volume in cm^3.
	Volume float64

	// ElectronDensity and HDensity are in cm^-3.
	ElectronDensity float64
	HDensity        float64

	// Temperature is in keV.
	Temperature float64

	// Metallicity is in solar units.
	Metallicity float64
}

// EmissionMeasure returns ne*nH*V in cm^-3 for the cell.
func (c *Cell) EmissionMeasure() float64 {
	return c.ElectronDensity * c.HDensity * c.Volume
}

// Sphere is a spatial region selector: all cells whose centers lie within
// Radius of Center contribute.
type Sphere struct {
	// Center is in kpc relative to the box center.
	Center r3.Vec

	// Radius is in kpc.
	Radius float64
}

// SelectSphere returns the cells inside the sphere, with densities converted
// to particle densities assuming a fully ionized cosmic plasma.
func (g *Grid) SelectSphere(sp Sphere) ([]Cell, error) {
	if sp.Radius <= 0 {
		return nil, fmt.Errorf("sphere radius must be positive, got %g kpc", sp.Radius)
	}
	vol := g.CellVolume()
	half := 0.5 * g.CellWidth()
	r2 := sp.Radius * sp.Radius
	var cells []Cell
	for k := 0; k < g.NZ; k++ {
		for j := 0; j < g.NY; j++ {
			for i := 0; i < g.NX; i++ {
				center := g.CellCenter(i, j, k)
				d := r3.Sub(center, sp.Center)
				if r3.Dot(d, d) > r2 {
					continue
				}
				idx := g.Index(i, j, k)
				rho := g.Density[idx]
				cells = append(cells, Cell{
					Center:          center,
					HalfWidth:       half,
					Volume:          vol,
					ElectronDensity: rho / (units.MuE * units.MProton),
					HDensity:        rho / (units.MuH * units.MProton),
					Temperature:     g.Temperature[idx],
					Metallicity:     g.Metallicity[idx],
				})
			}
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("sphere at (%g, %g, %g) kpc with radius %g kpc contains no cells",
			sp.Center.X, sp.Center.Y, sp.Center.Z, sp.Radius)
	}
	return cells, nil
}

// Field names accepted by Slice.
const (
	FieldDensity     = "density"
	FieldTemperature = "temperature"
	FieldMetallicity = "metallicity"
)

// Slice extracts the 2D plane of the named field through the middle of the
// box perpendicular to the given axis ("x", "y", or "z"). It returns the
// plane row-major along with its dimensions.
func (g *Grid) Slice(field, axis string) ([]float64, int, int, error) {
	var src []float64
	switch field {
	case FieldDensity:
		src = g.Density
	case FieldTemperature:
		src = g.Temperature
	case FieldMetallicity:
		src = g.Metallicity
	default:
		return nil, 0, 0, fmt.Errorf("unknown field %q", field)
	}
	switch axis {
	case "x", "X":
		i := g.NX / 2
		out := make([]float64, g.NY*g.NZ)
		for k := 0; k < g.NZ; k++ {
			for j := 0; j < g.NY; j++ {
				out[k*g.NY+j] = src[g.Index(i, j, k)]
			}
		}
		return out, g.NY, g.NZ, nil
	case "y", "Y":
		j := g.NY / 2
		out := make([]float64, g.NX*g.NZ)
		for k := 0; k < g.NZ; k++ {
			for i := 0; i < g.NX; i++ {
				out[k*g.NX+i] = src[g.Index(i, j, k)]
			}
		}
		return out, g.NX, g.NZ, nil
	case "z", "Z":
		k := g.NZ / 2
		out := make([]float64, g.NX*g.NY)
		for j := 0; j < g.NY; j++ {
			for i := 0; i < g.NX; i++ {
				out[j*g.NX+i] = src[g.Index(i, j, k)]
			}
		}
		return out, g.NX, g.NY, nil
	default:
		return nil, 0, 0, fmt.Errorf("invalid axis %q (must be x, y, or z)", axis)
	}
}

// DemoCluster generates a synthetic relaxed galaxy cluster on an n^3 grid in
// a box of the given width in kpc. The gas follows a beta-model density
// profile with a declining temperature profile and a centrally enhanced
// metallicity gradient, the standard idealization of a cool-core cluster.
func DemoCluster(n int, width float64) (*Grid, error) {
	g, err := NewGrid(n, n, n, width)
	if err != nil {
		return nil, err
	}
	const (
		ne0   = 1.0e-3 // central electron density, cm^-3
		rc    = 100.0  // core radius, kpc
		beta  = 2.0 / 3.0
		kT0   = 5.0 // central temperature, keV
		rT    = 400.0
		zOut  = 0.2 // outskirts metallicity, solar
		zCore = 0.3 // central enhancement, solar
	)
	rho0 := ne0 * units.MuE * units.MProton
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				c := g.CellCenter(i, j, k)
				r := r3.Norm(c)
				x2 := (r / rc) * (r / rc)
				idx := g.Index(i, j, k)
				g.Density[idx] = rho0 * math.Pow(1.0+x2, -1.5*beta)
				g.Temperature[idx] = kT0 / math.Pow(1.0+(r/rT)*(r/rT), 0.3)
				g.Metallicity[idx] = zOut + zCore/(1.0+x2)
			}
		}
	}
	return g, nil
}
