// Package instrument simulates a mock X-ray observation of a projected event
// list: effective-area filtering, PSF scatter, energy redistribution into
// detector channels, field-of-view clipping, and a flat particle background.
// Results are written as event, image, and PHA spectrum FITS files.
package instrument

import (
	"fmt"
	"sort"
	"sync"
)

// Spec is a parametric instrument definition. Real mission response files
// (ARF/RMF) are out of scope; the curves here are coarse stand-ins with the
// right shapes and magnitudes.
type Spec struct {
	// Name identifies the instrument in the registry and FITS headers.
	Name string

	// FOV is the field of view in arcmin (square field).
	FOV float64

	// NumPixels is the detector side length in pixels.
	NumPixels int

	// PSFSigma is the Gaussian PSF sigma in arcsec.
	PSFSigma float64

	// AreaEnergies and AreaValues tabulate the effective area curve,
	// energies in keV and areas in cm^2.
	AreaEnergies []float64
	AreaValues   []float64

	// Channel grid: NumChannels channels spanning [ChanEmin, ChanEmax] keV.
	NumChannels int
	ChanEmin    float64
	ChanEmax    float64

	// FWHMRef is the spectral resolution (FWHM, keV) at RefEnergy (keV);
	// the FWHM scales as sqrt(E/RefEnergy).
	FWHMRef   float64
	RefEnergy float64

	// BkgRate is the flat particle background rate in counts/s/arcmin^2.
	BkgRate float64
}

// MaxArea returns the peak of the effective area curve.
func (s *Spec) MaxArea() float64 {
	m := 0.0
	for _, a := range s.AreaValues {
		if a > m {
			m = a
		}
	}
	return m
}

// validate checks the definition for registration.
func (s *Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("instrument has no name")
	}
	if s.FOV <= 0 || s.NumPixels < 1 {
		return fmt.Errorf("instrument %q: bad field of view or pixel count", s.Name)
	}
	if len(s.AreaEnergies) < 2 || len(s.AreaEnergies) != len(s.AreaValues) {
		return fmt.Errorf("instrument %q: effective area curve needs matching energy/area nodes", s.Name)
	}
	if !sort.Float64sAreSorted(s.AreaEnergies) {
		return fmt.Errorf("instrument %q: effective area energies must be sorted", s.Name)
	}
	if s.NumChannels < 1 || s.ChanEmax <= s.ChanEmin {
		return fmt.Errorf("instrument %q: bad channel grid", s.Name)
	}
	if s.FWHMRef <= 0 || s.RefEnergy <= 0 {
		return fmt.Errorf("instrument %q: bad spectral resolution", s.Name)
	}
	return nil
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Spec{}
)

// Register adds an instrument definition, replacing any previous entry with
// the same name.
func Register(spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[spec.Name] = spec
	return nil
}

// Get returns the named instrument definition.
func Get(name string) (Spec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	spec, ok := registry[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown instrument %q", name)
	}
	return spec, nil
}

// Names returns the registered instrument names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	// A large-area high-resolution imager, a wide-field survey camera, and
	// a small CCD imager. Curves are keV/cm^2 node pairs.
	builtin := []Spec{
		{
			Name: "hdxi", FOV: 20.0, NumPixels: 1024, PSFSigma: 0.5,
			AreaEnergies: []float64{0.1, 0.5, 1.0, 2.0, 3.0, 5.0, 7.0, 10.0},
			AreaValues:   []float64{500, 9000, 12000, 11000, 8000, 4000, 1500, 300},
			NumChannels:  1000, ChanEmin: 0.1, ChanEmax: 10.0,
			FWHMRef: 0.15, RefEnergy: 6.0,
			BkgRate: 1.0e-6,
		},
		{
			Name: "wfi", FOV: 40.0, NumPixels: 512, PSFSigma: 5.0,
			AreaEnergies: []float64{0.1, 0.5, 1.0, 2.0, 4.0, 7.0, 10.0},
			AreaValues:   []float64{300, 5500, 7500, 7000, 4500, 1800, 400},
			NumChannels:  800, ChanEmin: 0.1, ChanEmax: 12.0,
			FWHMRef: 0.17, RefEnergy: 6.0,
			BkgRate: 2.0e-6,
		},
		{
			Name: "ccd", FOV: 17.0, NumPixels: 1024, PSFSigma: 0.8,
			AreaEnergies: []float64{0.2, 0.5, 1.0, 1.5, 3.0, 6.0, 9.0},
			AreaValues:   []float64{100, 450, 600, 550, 350, 150, 40},
			NumChannels:  1024, ChanEmin: 0.1, ChanEmax: 11.0,
			FWHMRef: 0.14, RefEnergy: 5.9,
			BkgRate: 5.0e-7,
		},
	}
	for _, spec := range builtin {
		if err := Register(spec); err != nil {
			panic(err)
		}
	}
}
