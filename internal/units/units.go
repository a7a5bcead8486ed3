// Package units collects the physical constants and unit conversions shared
// by the pipeline packages. All internal computation uses keV for energies,
// cm for distances in normalizations, and kpc for simulation coordinates.
package units

import "math"

const (
	// ErgPerKeV converts photon energies in keV to erg.
	ErgPerKeV = 1.60218e-9

	// CmPerKpc is the number of centimeters in one kiloparsec.
	CmPerKpc = 3.0857e21

	// CmPerMpc is the number of centimeters in one megaparsec.
	CmPerMpc = 3.0857e24

	// KpcPerMpc converts megaparsecs to kiloparsecs.
	KpcPerMpc = 1000.0

	// CLight is the speed of light in km/s.
	CLight = 2.99792458e5

	// MProton is the proton mass in grams.
	MProton = 1.67262e-24

	// KeVPerKelvin converts gas temperatures in Kelvin to keV.
	KeVPerKelvin = 8.61733e-8

	// Cm2PerM2 converts collecting areas in m^2 to cm^2.
	Cm2PerM2 = 1.0e4

	// ArcsecPerRadian converts radians to arcseconds.
	ArcsecPerRadian = 206264.806

	// MuE is the mean molecular weight per electron for a fully
	// ionized plasma of cosmic composition.
	MuE = 1.155

	// MuH is the mean molecular weight per hydrogen atom.
	MuH = 1.35

	// SigmaToFWHM relates a Gaussian sigma to its full width at half maximum.
	SigmaToFWHM = 2.3548200450309493

	// MaxDec bounds the declination of projection and pointing centers in
	// degrees. The tangent-plane mapping stretches as 1/cos(dec) and is
	// unusable at the celestial poles.
	MaxDec = 89.9
)

// Sqrt2Pi is used by Gaussian line profiles.
var Sqrt2Pi = math.Sqrt(2.0 * math.Pi)

// DegToRad converts degrees to radians.
func DegToRad(d float64) float64 { return d * math.Pi / 180.0 }

// RadToDeg converts radians to degrees.
func RadToDeg(r float64) float64 { return r * 180.0 / math.Pi }
