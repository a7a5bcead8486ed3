package spectra

import (
	"fmt"
	"math"

	"github.com/rainerweinberger/soxs/internal/units"
)

// bremNorm sets the absolute scale of the continuum emissivity in
// photons*cm^3/s/keV, chosen so that band-integrated fluxes for typical
// cluster emission measures land at APEC-like levels.
const bremNorm = 3.0e-15

// lineNorm sets the scale of the line emissivities relative to the continuum.
const lineNorm = 1.2e-15

// plasmaLine is one entry of the built-in emission line list for a hot
// collisionally-ionized plasma. Emissivities are relative weights at the
// temperature of peak formation.
type plasmaLine struct {
	name   string
	energy float64 // rest energy, keV
	weight float64
	atomic float64 // atomic mass number, for thermal broadening
	kTPeak float64 // temperature of peak emissivity, keV
}

// The strongest soft X-ray lines of an optically thin thermal plasma.
var plasmaLines = []plasmaLine{
	{"O VIII Ly-a", 0.654, 1.00, 16, 0.25},
	{"Fe XVII", 0.826, 1.40, 56, 0.6},
	{"Ne X Ly-a", 1.022, 0.55, 20, 0.6},
	{"Mg XII Ly-a", 1.472, 0.35, 24, 1.0},
	{"Si XIII He-a", 1.865, 0.45, 28, 1.1},
	{"S XV He-a", 2.461, 0.30, 32, 1.6},
	{"Fe XXV He-a", 6.700, 0.80, 56, 5.5},
}

// ThermalModel maps local plasma properties (temperature, metallicity) to a
// photon spectrum, approximating a collisional-ionization-equilibrium plasma
// with a bremsstrahlung continuum plus a fixed line list. The model is
// configured once with an energy grid and evaluated per plasma state.
type ThermalModel struct {
	// Name identifies the spectral model. Only "apec" is supported.
	Name string

	// Emin, Emax bound the energy grid in keV.
	Emin float64
	Emax float64

	// NBins is the number of spectral bins.
	NBins int

	// Broadening enables thermal broadening of emission lines.
	Broadening bool
}

// NewThermalModel validates the configuration and returns the model.
func NewThermalModel(name string, emin, emax float64, nbins int, broadening bool) (*ThermalModel, error) {
	if name != "apec" {
		return nil, fmt.Errorf("unknown thermal spectral model %q (supported: apec)", name)
	}
	if emax <= emin || emin <= 0 {
		return nil, fmt.Errorf("invalid energy range [%g, %g] keV", emin, emax)
	}
	if nbins < 2 {
		return nil, fmt.Errorf("need at least 2 spectral bins, got %d", nbins)
	}
	return &ThermalModel{
		Name:       name,
		Emin:       emin,
		Emax:       emax,
		NBins:      nbins,
		Broadening: broadening,
	}, nil
}

// gauntFactor approximates the free-free Gaunt factor.
func gauntFactor(e, kT float64) float64 {
	x := e / kT
	if x < 1e-4 {
		x = 1e-4
	}
	return 0.9 * math.Pow(x, -0.3)
}

// lineEmissivity is the relative strength of a line at temperature kT,
// peaking at the line's formation temperature.
func lineEmissivity(l plasmaLine, kT float64) float64 {
	r := math.Log(kT / l.kTPeak)
	return l.weight * math.Exp(-r*r) * math.Exp(-l.energy/kT)
}

// Spectrum evaluates the model for a plasma at temperature kT (keV) with
// metal abundance abund in solar units, observed at the given redshift. The
// normalization follows the XSPEC convention,
// norm = 1e-14 * EM / (4*pi*(1+z)^2 * D_A^2) with EM in cm^-3 and D_A in cm.
func (m *ThermalModel) Spectrum(kT, abund, redshift, norm float64) (*Spectrum, error) {
	if kT <= 0 {
		return nil, fmt.Errorf("plasma temperature must be positive, got %g keV", kT)
	}
	if abund < 0 {
		return nil, fmt.Errorf("metal abundance must be non-negative, got %g", abund)
	}
	scale := 1.0 / (1.0 + redshift)
	ebins := linspace(m.Emin, m.Emax, m.NBins)
	flux := make([]float64, m.NBins)

	// Continuum: thermal bremsstrahlung photon emissivity evaluated at the
	// rest-frame energy, with the (1+z) compression of the flux density.
	sqkT := math.Sqrt(kT)
	for i := 0; i < m.NBins; i++ {
		emid := 0.5 * (ebins[i] + ebins[i+1])
		erest := emid / scale
		flux[i] = bremNorm * gauntFactor(erest, kT) *
			math.Exp(-erest/kT) / (erest * sqkT) * scale
	}

	s, err := New(ebins, flux)
	if err != nil {
		return nil, err
	}

	// Lines: metal abundance scales every line in the list. Line centers are
	// redshifted onto the observed grid.
	de := s.BinWidth()
	for _, l := range plasmaLines {
		amp := lineNorm * abund * lineEmissivity(l, kT) / sqkT
		if amp <= 0 {
			continue
		}
		center := l.energy * scale
		if center < m.Emin || center > m.Emax {
			continue
		}
		fwhm := de
		if m.Broadening {
			vth := math.Sqrt(2.0 * kT * units.ErgPerKeV / (l.atomic * units.MProton))
			fwhm = units.SigmaToFWHM * center * vth / (units.CLight * 1.0e5)
		}
		s.addLineUnnormalized(center, fwhm, amp)
	}

	// XSPEC-style normalization carries the 1e14 factor.
	out := s.Scale(1.0e14 * norm)
	return out, nil
}

// addLineUnnormalized deposits a Gaussian line without triggering a
// recompute per line; callers must not rely on cached totals afterwards.
// Spectrum.Scale rebuilds them.
func (s *Spectrum) addLineUnnormalized(center, fwhm, amp float64) {
	sigma := fwhm / units.SigmaToFWHM
	if sigma < s.de/2 {
		// Narrower than a bin: deposit into the containing bin.
		idx := int((center - s.Ebins[0]) / s.de)
		if idx >= 0 && idx < len(s.Flux) {
			s.Flux[idx] += amp / s.de
		}
		return
	}
	peak := amp / (units.Sqrt2Pi * sigma)
	for i, e := range s.emid {
		x := (e - center) / sigma
		if math.Abs(x) > 8 {
			continue
		}
		s.Flux[i] += peak * math.Exp(-0.5*x*x)
	}
}
