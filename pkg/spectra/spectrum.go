// Package spectra provides energy-binned photon spectra and the spectral
// models used by the observation pipeline: power-law and constant sources,
// a thermal plasma model, galactic foreground absorption, and Monte Carlo
// generation of photon energies from a spectrum.
//
// Spectra are tabulated on a linear energy grid in keV. Fluxes are in
// photons/s/cm^2/keV unless noted otherwise.
package spectra

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rainerweinberger/soxs/internal/units"
)

// Spectrum is a binned photon spectrum. Ebins holds the nbins+1 bin edges in
// keV and Flux the per-bin flux density in photons/s/cm^2/keV.
type Spectrum struct {
	Ebins []float64
	Flux  []float64

	emid            []float64
	de              float64
	cum             []float64
	totalFlux       float64
	totalEnergyFlux float64
}

// New builds a spectrum from bin edges and flux densities. The edges must be
// uniformly spaced and increasing, with len(ebins) == len(flux)+1.
func New(ebins, flux []float64) (*Spectrum, error) {
	if len(ebins) < 2 || len(flux) != len(ebins)-1 {
		return nil, fmt.Errorf("need n+1 edges for n flux bins, got %d edges and %d bins",
			len(ebins), len(flux))
	}
	if ebins[0] <= 0 {
		return nil, fmt.Errorf("energy bins must be positive, got emin=%g", ebins[0])
	}
	s := &Spectrum{
		Ebins: append([]float64(nil), ebins...),
		Flux:  append([]float64(nil), flux...),
	}
	s.recompute()
	return s, nil
}

// linspace returns n+1 uniform bin edges over [emin, emax].
func linspace(emin, emax float64, nbins int) []float64 {
	edges := make([]float64, nbins+1)
	for i := range edges {
		edges[i] = emin + (emax-emin)*float64(i)/float64(nbins)
	}
	return edges
}

// FromPowerLaw creates a power-law spectrum with the given photon index,
// normalized to norm photons/s/cm^2/keV at 1 keV in the source frame.
func FromPowerLaw(photonIndex, redshift, norm, emin, emax float64, nbins int) (*Spectrum, error) {
	if emax <= emin || nbins < 1 {
		return nil, fmt.Errorf("invalid energy grid [%g, %g] with %d bins", emin, emax, nbins)
	}
	ebins := linspace(emin, emax, nbins)
	flux := make([]float64, nbins)
	for i := 0; i < nbins; i++ {
		emid := 0.5 * (ebins[i] + ebins[i+1])
		flux[i] = norm * math.Pow(emid*(1.0+redshift), -photonIndex)
	}
	return New(ebins, flux)
}

// FromConstant creates a flat spectrum with the given flux density.
func FromConstant(constFlux, emin, emax float64, nbins int) (*Spectrum, error) {
	if emax <= emin || nbins < 1 {
		return nil, fmt.Errorf("invalid energy grid [%g, %g] with %d bins", emin, emax, nbins)
	}
	ebins := linspace(emin, emax, nbins)
	flux := make([]float64, nbins)
	for i := range flux {
		flux[i] = constFlux
	}
	return New(ebins, flux)
}

// FromFile reads a two-column ASCII spectrum: bin-center energy in keV and
// flux density. Lines starting with '#' are skipped. Uniform binning is
// assumed, as written by WriteFile.
func FromFile(path string) (*Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spectrum file: %w", err)
	}
	defer f.Close()

	var emid, flux []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed spectrum line %q", line)
		}
		e, err1 := strconv.ParseFloat(fields[0], 64)
		fl, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("malformed spectrum line %q", line)
		}
		emid = append(emid, e)
		flux = append(flux, fl)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading spectrum file: %w", err)
	}
	if len(emid) < 2 {
		return nil, fmt.Errorf("spectrum file %s has fewer than 2 bins", path)
	}
	de := emid[1] - emid[0]
	ebins := make([]float64, len(emid)+1)
	for i, e := range emid {
		ebins[i] = e - 0.5*de
	}
	ebins[len(emid)] = emid[len(emid)-1] + 0.5*de
	return New(ebins, flux)
}

// WriteFile writes the spectrum as two-column ASCII, bin-center energy and
// flux density, readable by FromFile.
func (s *Spectrum) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating spectrum file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# Energy\tFlux")
	fmt.Fprintln(w, "# keV\tphotons/(cm**2*s*keV)")
	for i, e := range s.emid {
		fmt.Fprintf(w, "%.6e\t%.6e\n", e, s.Flux[i])
	}
	return w.Flush()
}

// recompute refreshes the cached bin centers, totals, and cumulative
// distribution after any flux change.
func (s *Spectrum) recompute() {
	n := len(s.Flux)
	s.de = s.Ebins[1] - s.Ebins[0]
	s.emid = make([]float64, n)
	for i := 0; i < n; i++ {
		s.emid[i] = 0.5 * (s.Ebins[i] + s.Ebins[i+1])
	}
	s.totalFlux = 0
	s.totalEnergyFlux = 0
	s.cum = make([]float64, n+1)
	for i := 0; i < n; i++ {
		s.totalFlux += s.Flux[i] * s.de
		s.totalEnergyFlux += s.Flux[i] * s.emid[i] * units.ErgPerKeV * s.de
		s.cum[i+1] = s.cum[i] + s.Flux[i]*s.de
	}
	if s.cum[n] > 0 {
		for i := range s.cum {
			s.cum[i] /= s.cum[n]
		}
	}
}

// NBins returns the number of energy bins.
func (s *Spectrum) NBins() int { return len(s.Flux) }

// BinWidth returns the uniform bin width in keV.
func (s *Spectrum) BinWidth() float64 { return s.de }

// Emid returns the bin-center energies in keV.
func (s *Spectrum) Emid() []float64 { return s.emid }

// TotalFlux returns the band-integrated photon flux in photons/s/cm^2.
func (s *Spectrum) TotalFlux() float64 { return s.totalFlux }

// TotalEnergyFlux returns the band-integrated energy flux in erg/s/cm^2.
func (s *Spectrum) TotalEnergyFlux() float64 { return s.totalEnergyFlux }

// Add returns the sum of two spectra on identical energy grids.
func (s *Spectrum) Add(other *Spectrum) (*Spectrum, error) {
	if s.NBins() != other.NBins() || s.Ebins[0] != other.Ebins[0] || s.de != other.de {
		return nil, fmt.Errorf("energy binning for the two spectra is not the same")
	}
	flux := make([]float64, s.NBins())
	for i := range flux {
		flux[i] = s.Flux[i] + other.Flux[i]
	}
	return New(s.Ebins, flux)
}

// Scale returns the spectrum multiplied by a constant factor.
func (s *Spectrum) Scale(factor float64) *Spectrum {
	flux := make([]float64, s.NBins())
	for i := range flux {
		flux[i] = s.Flux[i] * factor
	}
	out, _ := New(s.Ebins, flux)
	return out
}

// FluxInBand returns the photon flux (photons/s/cm^2) and energy flux
// (erg/s/cm^2) within [emin, emax].
func (s *Spectrum) FluxInBand(emin, emax float64) (float64, float64, error) {
	if emax <= emin {
		return 0, 0, fmt.Errorf("invalid band [%g, %g]", emin, emax)
	}
	var pflux, eflux float64
	for i, e := range s.emid {
		if e >= emin && e <= emax {
			pflux += s.Flux[i] * s.de
			eflux += s.Flux[i] * e * units.ErgPerKeV * s.de
		}
	}
	return pflux, eflux, nil
}

// NewFromBand returns a new spectrum restricted to the bins whose edges lie
// within [emin, emax].
func (s *Spectrum) NewFromBand(emin, emax float64) (*Spectrum, error) {
	lo := sort.SearchFloat64s(s.Ebins, emin)
	hi := sort.SearchFloat64s(s.Ebins, emax)
	if hi < len(s.Ebins) && s.Ebins[hi] == emax {
		hi++
	}
	if hi-lo < 2 {
		return nil, fmt.Errorf("band [%g, %g] contains no complete bins", emin, emax)
	}
	return New(s.Ebins[lo:hi], s.Flux[lo:hi-1])
}

// RescaleFlux rescales the spectrum so that its photon flux in [emin, emax]
// equals newFlux in photons/s/cm^2. Pass emin=0, emax=0 to use the full band.
func (s *Spectrum) RescaleFlux(newFlux, emin, emax float64) error {
	if emin == 0 && emax == 0 {
		emin = s.Ebins[0]
		emax = s.Ebins[len(s.Ebins)-1]
	}
	pflux, _, err := s.FluxInBand(emin, emax)
	if err != nil {
		return err
	}
	if pflux <= 0 {
		return fmt.Errorf("cannot rescale: zero flux in band [%g, %g]", emin, emax)
	}
	factor := newFlux / pflux
	for i := range s.Flux {
		s.Flux[i] *= factor
	}
	s.recompute()
	return nil
}

// AddEmissionLine adds a Gaussian emission line to the spectrum. The center
// and FWHM are in keV in the observer frame; amp is the integrated line flux
// in photons/s/cm^2.
func (s *Spectrum) AddEmissionLine(center, fwhm, amp float64) {
	sigma := fwhm / units.SigmaToFWHM
	if sigma < s.de {
		sigma = s.de
	}
	peak := amp / (units.Sqrt2Pi * sigma)
	for i, e := range s.emid {
		x := (e - center) / sigma
		s.Flux[i] += peak * math.Exp(-0.5*x*x)
	}
	s.recompute()
}

// AddAbsorptionLine subtracts a Gaussian absorption line from the spectrum,
// clamping the flux at zero. Center and FWHM are in keV in the observer
// frame; amp is the integrated line flux removed in photons/s/cm^2.
func (s *Spectrum) AddAbsorptionLine(center, fwhm, amp float64) {
	sigma := fwhm / units.SigmaToFWHM
	if sigma < s.de {
		sigma = s.de
	}
	peak := amp / (units.Sqrt2Pi * sigma)
	for i, e := range s.emid {
		x := (e - center) / sigma
		s.Flux[i] -= peak * math.Exp(-0.5*x*x)
		if s.Flux[i] < 0 {
			s.Flux[i] = 0
		}
	}
	s.recompute()
}

// ApplyForegroundAbsorption attenuates the spectrum by galactic foreground
// absorption with hydrogen column nH in units of 1e22 atoms/cm^2. Supported
// models are "wabs" and "tbabs"; redshift shifts the absorber frame.
func (s *Spectrum) ApplyForegroundAbsorption(nH float64, model string, redshift float64) error {
	absorb, err := TransmissionFunc(model)
	if err != nil {
		return err
	}
	for i, e := range s.emid {
		s.Flux[i] *= absorb(e*(1.0+redshift), nH)
	}
	s.recompute()
	return nil
}

// sampleEnergy inverts the cumulative distribution at u in [0, 1).
func (s *Spectrum) sampleEnergy(u float64) float64 {
	idx := sort.SearchFloat64s(s.cum, u)
	if idx <= 0 {
		idx = 1
	}
	if idx >= len(s.cum) {
		idx = len(s.cum) - 1
	}
	lo, hi := s.cum[idx-1], s.cum[idx]
	frac := 0.0
	if hi > lo {
		frac = (u - lo) / (hi - lo)
	}
	return s.Ebins[idx-1] + frac*s.de
}

// GenerateEnergies draws photon energies from the spectrum for an exposure
// time in seconds and a constant collecting area in cm^2. The number of
// photons is Poisson-distributed about t_exp * area * total flux.
func (s *Spectrum) GenerateEnergies(tExp, area float64, src rand.Source) ([]float64, error) {
	if tExp <= 0 || area <= 0 {
		return nil, fmt.Errorf("exposure and area must be positive, got %g s and %g cm^2", tExp, area)
	}
	mean := tExp * area * s.totalFlux
	if mean == 0 {
		return nil, nil
	}
	pois := distuv.Poisson{Lambda: mean, Src: src}
	n := int(pois.Rand())
	rng := rand.New(src)
	energies := make([]float64, n)
	for i := range energies {
		energies[i] = s.sampleEnergy(rng.Float64())
	}
	return energies, nil
}
