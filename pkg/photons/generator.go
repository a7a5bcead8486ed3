// Package photons generates Monte Carlo photon samples from a selected
// simulation region and a thermal emission model. The sample is an oversized
// photon budget for a given exposure time, collecting area, and source
// redshift, from which smaller sub-samples are drawn downstream.
package photons

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rainerweinberger/soxs/internal/units"
	"github.com/rainerweinberger/soxs/pkg/cosmology"
	"github.com/rainerweinberger/soxs/pkg/dataset"
	"github.com/rainerweinberger/soxs/pkg/spectra"
)

// Params configures the photon sampling budget.
type Params struct {
	// ExposureTime is the sampling exposure in seconds. It should exceed the
	// exposure of any simulated observation drawn from the sample.
	ExposureTime float64

	// Area is the constant collecting area in cm^2. It must be large enough
	// that instrument effective-area curves can be drawn from the sample.
	Area float64

	// Redshift of the source.
	Redshift float64

	// NumCores bounds the worker count; zero means all available cores.
	NumCores int

	// Seed makes the sample reproducible.
	Seed uint64
}

// List is a Monte Carlo photon sample: energies in keV (observer frame) with
// the emitting positions in kpc relative to the region center.
type List struct {
	Energies  []float64
	Positions []r3.Vec

	// PerCell records how many photons each input cell contributed.
	PerCell []int

	// Sampling budget and geometry carried along for projection.
	ExposureTime float64 // s
	Area         float64 // cm^2
	Redshift     float64
	DistA        float64 // angular diameter distance, Mpc
}

// NPhotons returns the sample size.
func (l *List) NPhotons() int { return len(l.Energies) }

// Generator samples photons from simulation cells with a thermal model.
type Generator struct {
	model  *spectra.ThermalModel
	cosmo  *cosmology.Cosmology
	params Params
}

// NewGenerator validates the sampling parameters and returns a generator.
func NewGenerator(model *spectra.ThermalModel, cosmo *cosmology.Cosmology, params Params) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("emission model must not be nil")
	}
	if cosmo == nil {
		cosmo = cosmology.Default()
	}
	if params.ExposureTime <= 0 {
		return nil, fmt.Errorf("sampling exposure must be positive, got %g s", params.ExposureTime)
	}
	if params.Area <= 0 {
		return nil, fmt.Errorf("collecting area must be positive, got %g cm^2", params.Area)
	}
	if params.Redshift <= 0 {
		return nil, fmt.Errorf("source redshift must be positive, got %g", params.Redshift)
	}
	return &Generator{model: model, cosmo: cosmo, params: params}, nil
}

// cellResult collects one worker's share of the sample.
type cellResult struct {
	energies  []float64
	positions []r3.Vec
	perCell   []int
	err       error
}

// Generate draws the photon sample from the given cells. Cells are split
// into contiguous chunks processed by a worker pool; each worker carries an
// independent random stream derived from the seed, so results are
// reproducible for a fixed worker count.
func (g *Generator) Generate(cells []dataset.Cell) (*List, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no cells to sample from")
	}
	da, err := g.cosmo.AngularDiameterDistance(g.params.Redshift)
	if err != nil {
		return nil, fmt.Errorf("computing source distance: %w", err)
	}
	daCm := da * units.CmPerMpc
	zp1 := 1.0 + g.params.Redshift
	normDenom := 4.0 * math.Pi * daCm * daCm * zp1 * zp1

	numWorkers := g.params.NumCores
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(cells) {
		numWorkers = len(cells)
	}

	chunk := (len(cells) + numWorkers - 1) / numWorkers
	results := make([]cellResult, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(cells) {
			hi = len(cells)
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			results[w] = g.sampleCells(cells[lo:hi], normDenom, g.params.Seed+uint64(w))
		}(w, lo, hi)
	}
	wg.Wait()

	list := &List{
		ExposureTime: g.params.ExposureTime,
		Area:         g.params.Area,
		Redshift:     g.params.Redshift,
		DistA:        da,
	}
	for w := range results {
		if results[w].err != nil {
			return nil, results[w].err
		}
		list.Energies = append(list.Energies, results[w].energies...)
		list.Positions = append(list.Positions, results[w].positions...)
		list.PerCell = append(list.PerCell, results[w].perCell...)
	}
	return list, nil
}

// sampleCells draws photons for one chunk of cells.
func (g *Generator) sampleCells(cells []dataset.Cell, normDenom float64, seed uint64) cellResult {
	src := rand.NewSource(seed)
	rng := rand.New(src)
	res := cellResult{perCell: make([]int, len(cells))}
	for ci := range cells {
		c := &cells[ci]
		norm := 1.0e-14 * c.EmissionMeasure() / normDenom
		spec, err := g.model.Spectrum(c.Temperature, c.Metallicity, g.params.Redshift, norm)
		if err != nil {
			res.err = fmt.Errorf("building spectrum for cell at %+v: %w", c.Center, err)
			return res
		}
		energies, err := spec.GenerateEnergies(g.params.ExposureTime, g.params.Area, src)
		if err != nil {
			res.err = fmt.Errorf("sampling energies for cell at %+v: %w", c.Center, err)
			return res
		}
		res.perCell[ci] = len(energies)
		res.energies = append(res.energies, energies...)
		// Emission sites are uniform within the cell.
		for range energies {
			res.positions = append(res.positions, r3.Vec{
				X: c.Center.X + c.HalfWidth*(2.0*rng.Float64()-1.0),
				Y: c.Center.Y + c.HalfWidth*(2.0*rng.Float64()-1.0),
				Z: c.Center.Z + c.HalfWidth*(2.0*rng.Float64()-1.0),
			})
		}
	}
	return res
}
