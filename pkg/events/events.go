// Package events projects photon samples onto the sky plane, producing an
// instrument-independent event list with foreground absorption applied.
package events

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/rainerweinberger/soxs/internal/units"
	"github.com/rainerweinberger/soxs/pkg/photons"
	"github.com/rainerweinberger/soxs/pkg/spectra"
)

// List is a projected event list: sky coordinates in degrees and photon
// energies in keV, plus the sampling budget inherited from the photon sample.
type List struct {
	RA     []float64
	Dec    []float64
	Energy []float64

	// ExposureTime and Area are the sampling budget the list was drawn for.
	ExposureTime float64 // s
	Area         float64 // cm^2

	// SkyCenter is the (RA, Dec) the projection is centered on, in degrees.
	SkyCenter [2]float64
}

// NEvents returns the event count.
func (l *List) NEvents() int { return len(l.Energy) }

// ProjectParams configures the sky projection.
type ProjectParams struct {
	// Axis is the line of sight: "x", "y", or "z".
	Axis string

	// SkyCenter is the (RA, Dec) of the region center in degrees.
	SkyCenter [2]float64

	// NH is the foreground hydrogen column in units of 1e22 atoms/cm^2.
	// Zero disables absorption.
	NH float64

	// AbsorbModel names the absorption model, normally "wabs".
	AbsorbModel string

	// Seed drives the absorption rejection sampling.
	Seed uint64
}

// Project maps a photon sample onto the tangent plane at the sky center,
// dropping photons absorbed by the galactic foreground. The two simulation
// axes perpendicular to the line of sight become offsets in RA and Dec
// through the small-angle scaling at the sample's angular diameter distance.
func Project(pl *photons.List, params ProjectParams) (*List, error) {
	if pl.NPhotons() == 0 {
		return nil, fmt.Errorf("photon sample is empty")
	}
	if pl.DistA <= 0 {
		return nil, fmt.Errorf("photon sample carries no angular diameter distance")
	}

	var absorb func(e, nH float64) float64
	if params.NH > 0 {
		var err error
		absorb, err = spectra.TransmissionFunc(params.AbsorbModel)
		if err != nil {
			return nil, err
		}
	}

	// kpc offsets perpendicular to the line of sight, converted to degrees.
	daKpc := pl.DistA * units.KpcPerMpc
	degPerKpc := units.RadToDeg(1.0 / daKpc)

	rng := rand.New(rand.NewSource(params.Seed))
	out := &List{
		ExposureTime: pl.ExposureTime,
		Area:         pl.Area,
		SkyCenter:    params.SkyCenter,
	}
	if math.Abs(params.SkyCenter[1]) > units.MaxDec {
		return nil, fmt.Errorf("projection center Dec %g deg is too close to a celestial pole (limit %g deg)",
			params.SkyCenter[1], units.MaxDec)
	}
	cosDec := math.Cos(units.DegToRad(params.SkyCenter[1]))
	for i, pos := range pl.Positions {
		var xSky, ySky float64
		switch params.Axis {
		case "x", "X":
			xSky, ySky = pos.Y, pos.Z
		case "y", "Y":
			xSky, ySky = pos.Z, pos.X
		case "z", "Z":
			xSky, ySky = pos.X, pos.Y
		default:
			return nil, fmt.Errorf("invalid projection axis %q (must be x, y, or z)", params.Axis)
		}
		e := pl.Energies[i]
		if absorb != nil && rng.Float64() > absorb(e, params.NH) {
			continue
		}
		// RA grows to the east (decreasing x on the tangent plane).
		out.RA = append(out.RA, params.SkyCenter[0]-xSky*degPerKpc/cosDec)
		out.Dec = append(out.Dec, params.SkyCenter[1]+ySky*degPerKpc)
		out.Energy = append(out.Energy, e)
	}
	if out.NEvents() == 0 {
		return nil, fmt.Errorf("all photons were absorbed; check the column density")
	}
	return out, nil
}
