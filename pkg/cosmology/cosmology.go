// Package cosmology provides the flat Lambda-CDM distance calculations needed
// to normalize X-ray emission from sources at nonzero redshift.
package cosmology

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/rainerweinberger/soxs/internal/units"
)

// Cosmology holds the parameters of a flat Lambda-CDM model.
type Cosmology struct {
	// H0 is the Hubble constant in km/s/Mpc.
	H0 float64

	// OmegaM is the matter density parameter at z=0.
	OmegaM float64

	// OmegaL is the dark energy density parameter at z=0.
	OmegaL float64
}

// Default returns the cosmology used when none is configured,
// H0=70 km/s/Mpc, OmegaM=0.3, OmegaL=0.7.
func Default() *Cosmology {
	return &Cosmology{H0: 70.0, OmegaM: 0.3, OmegaL: 0.7}
}

// HubbleDistance returns c/H0 in Mpc.
func (c *Cosmology) HubbleDistance() float64 {
	return units.CLight / c.H0
}

// efunc is the dimensionless Hubble parameter E(z) = H(z)/H0.
func (c *Cosmology) efunc(z float64) float64 {
	zp1 := 1.0 + z
	return math.Sqrt(c.OmegaM*zp1*zp1*zp1 + c.OmegaL)
}

// ComovingDistance returns the line-of-sight comoving distance to redshift z
// in Mpc, evaluated with fixed-order Gauss-Legendre quadrature.
func (c *Cosmology) ComovingDistance(z float64) (float64, error) {
	if z < 0 {
		return 0, fmt.Errorf("redshift must be non-negative, got %g", z)
	}
	if z == 0 {
		return 0, nil
	}
	integral := quad.Fixed(func(x float64) float64 {
		return 1.0 / c.efunc(x)
	}, 0, z, 64, nil, 0)
	return c.HubbleDistance() * integral, nil
}

// AngularDiameterDistance returns the angular diameter distance to redshift z
// in Mpc. For z=0 there is no meaningful distance and an error is returned,
// since emission normalizations diverge there.
func (c *Cosmology) AngularDiameterDistance(z float64) (float64, error) {
	if z <= 0 {
		return 0, fmt.Errorf("angular diameter distance requires z > 0, got %g", z)
	}
	dc, err := c.ComovingDistance(z)
	if err != nil {
		return 0, err
	}
	return dc / (1.0 + z), nil
}

// LuminosityDistance returns the luminosity distance to redshift z in Mpc.
func (c *Cosmology) LuminosityDistance(z float64) (float64, error) {
	dc, err := c.ComovingDistance(z)
	if err != nil {
		return 0, err
	}
	return dc * (1.0 + z), nil
}
