// Package pipeline runs the complete mock observation chain: dataset to
// photon sample to SIMPUT file to simulated instrument products and figures.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rainerweinberger/soxs/pkg/config"
	"github.com/rainerweinberger/soxs/pkg/cosmology"
	"github.com/rainerweinberger/soxs/pkg/dataset"
	"github.com/rainerweinberger/soxs/pkg/events"
	"github.com/rainerweinberger/soxs/pkg/instrument"
	"github.com/rainerweinberger/soxs/pkg/photons"
	"github.com/rainerweinberger/soxs/pkg/plots"
	"github.com/rainerweinberger/soxs/pkg/simput"
	"github.com/rainerweinberger/soxs/pkg/spectra"
)

// Artifacts lists the files a pipeline run produces.
type Artifacts struct {
	DensityMap     string
	TemperatureMap string
	SimputFile     string
	EventFile      string
	ImageFile      string
	SpectrumFile   string
	ImageFigure    string
	SpectrumFigure string
}

// Stats summarizes a pipeline run.
type Stats struct {
	// NCells is the number of emitting cells in the selected region.
	NCells int

	// NPhotons is the size of the Monte Carlo photon sample.
	NPhotons int

	// NProjected is the number of photons surviving foreground absorption.
	NProjected int

	// NDetected is the number of events in the simulated observation.
	NDetected int
}

// Pipeline executes the mock observation chain for one configuration.
type Pipeline struct {
	cfg   *config.Config
	stats Stats
	out   Artifacts
}

// New creates a pipeline for the given configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

// Stats returns the run summary. Valid after Process.
func (p *Pipeline) Stats() Stats { return p.stats }

// Artifacts returns the paths of the produced files. Valid after Process.
func (p *Pipeline) Artifacts() Artifacts { return p.out }

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.cfg.Output.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// Process runs the complete mock observation pipeline
func (p *Pipeline) Process() error {
	cfg := p.cfg
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	// Step 1: Load or generate the dataset
	p.logf("Step 1: Loading dataset...")
	var grid *dataset.Grid
	var err error
	if cfg.Source.SnapshotPath != "" {
		grid, err = dataset.Load(cfg.Source.SnapshotPath)
	} else {
		grid, err = dataset.DemoCluster(cfg.Source.GridSize, cfg.Source.BoxWidth)
	}
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	p.logf("Loaded %dx%dx%d grid, %g kpc box", grid.NX, grid.NY, grid.NZ, grid.Width)

	// Step 2: Render field slice maps
	p.logf("Step 2: Rendering slice maps...")
	if err := p.renderSlices(grid); err != nil {
		return err
	}

	// Step 3: Select the emitting region
	p.logf("Step 3: Selecting sphere region, r = %g kpc...", cfg.Source.SphereRadius)
	cells, err := grid.SelectSphere(dataset.Sphere{Radius: cfg.Source.SphereRadius})
	if err != nil {
		return fmt.Errorf("selecting region: %w", err)
	}
	p.stats.NCells = len(cells)
	p.logf("Selected %d emitting cells", len(cells))

	// Step 4: Build the thermal emission model
	p.logf("Step 4: Building %s emission model...", cfg.Model.Name)
	model, err := spectra.NewThermalModel(cfg.Model.Name, cfg.Model.Emin, cfg.Model.Emax,
		cfg.Model.NBins, cfg.Model.Broadening)
	if err != nil {
		return fmt.Errorf("building emission model: %w", err)
	}

	// Step 5: Generate the Monte Carlo photon sample
	p.logf("Step 5: Sampling photons for %g ks, %g cm^2...",
		cfg.Sampling.ExposureTime/1000.0, cfg.Sampling.Area)
	gen, err := photons.NewGenerator(model, cosmology.Default(), photons.Params{
		ExposureTime: cfg.Sampling.ExposureTime,
		Area:         cfg.Sampling.Area,
		Redshift:     cfg.Source.Redshift,
		NumCores:     cfg.Sampling.NumCores,
		Seed:         cfg.Sampling.Seed,
	})
	if err != nil {
		return fmt.Errorf("building photon generator: %w", err)
	}
	sample, err := gen.Generate(cells)
	if err != nil {
		return fmt.Errorf("sampling photons: %w", err)
	}
	p.stats.NPhotons = sample.NPhotons()
	p.logf("Sampled %d photons", sample.NPhotons())

	// Step 6: Project to the sky with foreground absorption
	p.logf("Step 6: Projecting along %s with nH = %g...",
		cfg.Sky.ProjectionAxis, cfg.Model.NH)
	evts, err := events.Project(sample, events.ProjectParams{
		Axis:        cfg.Sky.ProjectionAxis,
		SkyCenter:   [2]float64{cfg.Sky.RA, cfg.Sky.Dec},
		NH:          cfg.Model.NH,
		AbsorbModel: cfg.Model.AbsorbModel,
		Seed:        cfg.Sampling.Seed,
	})
	if err != nil {
		return fmt.Errorf("projecting photons: %w", err)
	}
	p.stats.NProjected = evts.NEvents()
	p.logf("%d photons survive absorption", evts.NEvents())

	// Step 7: Write the SIMPUT file
	p.logf("Step 7: Writing SIMPUT file...")
	p.out.SimputFile = filepath.Join(cfg.Output.Dir, "source_simput.fits")
	if err := simput.Write(p.out.SimputFile, "source", evts); err != nil {
		return fmt.Errorf("writing SIMPUT: %w", err)
	}

	// Step 8: Simulate the observation from the SIMPUT file
	p.logf("Step 8: Simulating %s observation for %g ks...",
		cfg.Instrument.Name, cfg.Instrument.ExposureTime/1000.0)
	loaded, err := simput.Read(p.out.SimputFile)
	if err != nil {
		return fmt.Errorf("reading SIMPUT back: %w", err)
	}
	sim, err := instrument.NewSimulator(cfg.Instrument.Name, cfg.Sampling.Seed)
	if err != nil {
		return fmt.Errorf("building instrument simulator: %w", err)
	}
	obs, err := sim.Observe(loaded, cfg.Instrument.ExposureTime,
		[2]float64{cfg.Sky.RA, cfg.Sky.Dec})
	if err != nil {
		return fmt.Errorf("simulating observation: %w", err)
	}
	p.stats.NDetected = obs.NEvents()
	p.logf("Detected %d events", obs.NEvents())
	p.out.EventFile = filepath.Join(cfg.Output.Dir, "evt.fits")
	if err := obs.WriteEvents(p.out.EventFile); err != nil {
		return fmt.Errorf("writing event file: %w", err)
	}

	// Step 9: Bin the image and the spectrum
	p.logf("Step 9: Binning image and spectrum...")
	p.out.ImageFile = filepath.Join(cfg.Output.Dir, "img.fits")
	if err := obs.WriteImage(p.out.ImageFile, cfg.Output.ImageEmin, cfg.Output.ImageEmax,
		cfg.Output.ImageSize); err != nil {
		return fmt.Errorf("writing image file: %w", err)
	}
	p.out.SpectrumFile = filepath.Join(cfg.Output.Dir, "spec.pha")
	if err := obs.WritePHA(p.out.SpectrumFile); err != nil {
		return fmt.Errorf("writing spectrum file: %w", err)
	}

	// Step 10: Render the observation figures
	p.logf("Step 10: Rendering figures...")
	im, err := obs.BinImage(cfg.Output.ImageEmin, cfg.Output.ImageEmax, cfg.Output.ImageSize)
	if err != nil {
		return fmt.Errorf("binning figure image: %w", err)
	}
	p.out.ImageFigure = filepath.Join(cfg.Output.Dir, "img.png")
	title := fmt.Sprintf("%s, %.1f-%.1f keV", cfg.Instrument.Name,
		cfg.Output.ImageEmin, cfg.Output.ImageEmax)
	if err := plots.SaveCountsImage(im, sim.Spec().FOV, title, p.out.ImageFigure); err != nil {
		return fmt.Errorf("rendering counts image: %w", err)
	}
	p.out.SpectrumFigure = filepath.Join(cfg.Output.Dir, "spec.png")
	if err := plots.SaveSpectrumFile(p.out.SpectrumFile, cfg.Output.SpectrumEmin,
		cfg.Output.SpectrumEmax, cfg.Instrument.Name, p.out.SpectrumFigure); err != nil {
		return fmt.Errorf("rendering spectrum: %w", err)
	}

	p.logf("Done: %d cells, %d sampled, %d projected, %d detected",
		p.stats.NCells, p.stats.NPhotons, p.stats.NProjected, p.stats.NDetected)
	return nil
}

// renderSlices saves density and temperature midplane maps.
func (p *Pipeline) renderSlices(grid *dataset.Grid) error {
	fields := []struct {
		name string
		dest *string
	}{
		{dataset.FieldDensity, &p.out.DensityMap},
		{dataset.FieldTemperature, &p.out.TemperatureMap},
	}
	for _, f := range fields {
		vals, w, h, err := grid.Slice(f.name, p.cfg.Sky.ProjectionAxis)
		if err != nil {
			return fmt.Errorf("slicing %s: %w", f.name, err)
		}
		path := filepath.Join(p.cfg.Output.Dir, fmt.Sprintf("slice_%s.png", f.name))
		if err := plots.SaveSliceMap(vals, w, h, grid.Width, f.name, path); err != nil {
			return fmt.Errorf("rendering %s slice: %w", f.name, err)
		}
		*f.dest = path
	}
	return nil
}
