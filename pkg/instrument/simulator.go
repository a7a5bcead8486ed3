package instrument

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rainerweinberger/soxs/internal/units"
	"github.com/rainerweinberger/soxs/pkg/events"
)

// Simulator applies one instrument definition to projected event lists.
type Simulator struct {
	spec Spec
	area interp.PiecewiseLinear
	seed uint64
}

// NewSimulator looks up the named instrument and prepares its effective
// area interpolant.
func NewSimulator(name string, seed uint64) (*Simulator, error) {
	spec, err := Get(name)
	if err != nil {
		return nil, err
	}
	s := &Simulator{spec: spec, seed: seed}
	if err := s.area.Fit(spec.AreaEnergies, spec.AreaValues); err != nil {
		return nil, fmt.Errorf("fitting effective area curve for %q: %w", name, err)
	}
	return s, nil
}

// Spec returns the instrument definition in use.
func (s *Simulator) Spec() Spec { return s.spec }

// EffectiveArea returns the effective area in cm^2 at energy e in keV,
// clamped to the tabulated range.
func (s *Simulator) EffectiveArea(e float64) float64 {
	lo := s.spec.AreaEnergies[0]
	hi := s.spec.AreaEnergies[len(s.spec.AreaEnergies)-1]
	if e < lo {
		e = lo
	}
	if e > hi {
		e = hi
	}
	return s.area.Predict(e)
}

// fwhm returns the spectral resolution at energy e in keV.
func (s *Simulator) fwhm(e float64) float64 {
	return s.spec.FWHMRef * math.Sqrt(e/s.spec.RefEnergy)
}

// Observation is the outcome of a simulated exposure: detected events with
// sky positions, redistributed energies, and detector channels.
type Observation struct {
	Inst      Spec
	Exposure  float64 // s
	SkyCenter [2]float64

	RA      []float64 // deg
	Dec     []float64 // deg
	Energy  []float64 // measured energy, keV
	Channel []int32
}

// NEvents returns the detected event count.
func (o *Observation) NEvents() int { return len(o.Channel) }

// Observe simulates an exposure of texp seconds pointed at pointing. Each
// sample photon is accepted with probability
// (texp/t_sample) * (A_eff(E)/A_sample), then scattered by the PSF, clipped
// to the field of view, and redistributed in energy. The sampling budget
// must dominate the requested exposure and the instrument's peak area, or
// the sub-sampling would need acceptance probabilities above one.
func (s *Simulator) Observe(evts *events.List, texp float64, pointing [2]float64) (*Observation, error) {
	if evts.NEvents() == 0 {
		return nil, fmt.Errorf("event list is empty")
	}
	if texp <= 0 {
		return nil, fmt.Errorf("exposure time must be positive, got %g s", texp)
	}
	if texp > evts.ExposureTime {
		return nil, fmt.Errorf("requested exposure %g s exceeds the sampled budget %g s",
			texp, evts.ExposureTime)
	}
	if maxA := s.spec.MaxArea(); maxA > evts.Area {
		return nil, fmt.Errorf("instrument peak area %g cm^2 exceeds the sampled area %g cm^2",
			maxA, evts.Area)
	}

	src := rand.NewSource(s.seed)
	rng := rand.New(src)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	obs := &Observation{Inst: s.spec, Exposure: texp, SkyCenter: pointing}
	expFrac := texp / evts.ExposureTime
	halfFOV := s.spec.FOV / 60.0 / 2.0 // deg
	psfDeg := s.spec.PSFSigma / 3600.0
	if math.Abs(pointing[1]) > units.MaxDec {
		return nil, fmt.Errorf("pointing Dec %g deg is too close to a celestial pole (limit %g deg)",
			pointing[1], units.MaxDec)
	}
	cosDec := math.Cos(units.DegToRad(pointing[1]))
	dch := (s.spec.ChanEmax - s.spec.ChanEmin) / float64(s.spec.NumChannels)

	for i, e := range evts.Energy {
		p := expFrac * s.EffectiveArea(e) / evts.Area
		if rng.Float64() > p {
			continue
		}
		ra := evts.RA[i] + normal.Rand()*psfDeg/cosDec
		dec := evts.Dec[i] + normal.Rand()*psfDeg
		if math.Abs((ra-pointing[0])*cosDec) > halfFOV || math.Abs(dec-pointing[1]) > halfFOV {
			continue
		}
		em := e + normal.Rand()*s.fwhm(e)/units.SigmaToFWHM
		ch := int((em - s.spec.ChanEmin) / dch)
		if ch < 0 || ch >= s.spec.NumChannels {
			continue
		}
		obs.RA = append(obs.RA, ra)
		obs.Dec = append(obs.Dec, dec)
		obs.Energy = append(obs.Energy, em)
		obs.Channel = append(obs.Channel, int32(ch))
	}

	s.addBackground(obs, rng, pointing, halfFOV, cosDec, dch)
	return obs, nil
}

// addBackground injects the flat particle background, uniform over the
// field of view and the channel grid.
func (s *Simulator) addBackground(obs *Observation, rng *rand.Rand, pointing [2]float64,
	halfFOV, cosDec, dch float64) {
	if s.spec.BkgRate <= 0 {
		return
	}
	mean := s.spec.BkgRate * obs.Exposure * s.spec.FOV * s.spec.FOV
	if mean <= 0 {
		return
	}
	pois := distuv.Poisson{Lambda: mean, Src: rand.NewSource(s.seed + 1)}
	n := int(pois.Rand())
	for i := 0; i < n; i++ {
		ch := rng.Intn(s.spec.NumChannels)
		obs.RA = append(obs.RA, pointing[0]+(2.0*rng.Float64()-1.0)*halfFOV/cosDec)
		obs.Dec = append(obs.Dec, pointing[1]+(2.0*rng.Float64()-1.0)*halfFOV)
		obs.Energy = append(obs.Energy, s.spec.ChanEmin+(float64(ch)+rng.Float64())*dch)
		obs.Channel = append(obs.Channel, int32(ch))
	}
}
