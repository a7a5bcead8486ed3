package instrument

import (
	"fmt"
	"math"

	"github.com/rainerweinberger/soxs/internal/units"
	"github.com/rainerweinberger/soxs/pkg/fits"
)

// WriteEvents stores the observation as an event FITS file with an EVENTS
// binary table extension.
func (o *Observation) WriteEvents(path string) error {
	if o.NEvents() == 0 {
		return fmt.Errorf("observation has no events")
	}
	energies := make([]float32, o.NEvents())
	for i, e := range o.Energy {
		energies[i] = float32(e)
	}
	table := &fits.Table{
		Name: "EVENTS",
		Cols: []fits.Column{
			fits.FloatColumn("RA", "deg", o.RA),
			fits.FloatColumn("DEC", "deg", o.Dec),
			fits.Float32Column("ENERGY", "keV", energies),
			fits.IntColumn("CHANNEL", "", o.Channel),
		},
	}
	hdu, err := fits.NewTableHDU(table)
	if err != nil {
		return fmt.Errorf("building EVENTS table: %w", err)
	}
	o.setObsKeys(hdu.Header)
	return fits.WriteFile(path, fits.NewPrimaryHDU(), hdu)
}

// ReadEvents loads an event FITS file written by WriteEvents.
func ReadEvents(path string) (*Observation, error) {
	hdus, err := fits.ReadFile(path)
	if err != nil {
		return nil, err
	}
	table, err := fits.FindTable(hdus, "EVENTS")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	obs := &Observation{}
	for _, hdu := range hdus {
		if hdu.Table == table {
			obs.Exposure, _ = hdu.Header.Float("EXPOSURE")
			obs.SkyCenter[0], _ = hdu.Header.Float("RA_PNT")
			obs.SkyCenter[1], _ = hdu.Header.Float("DEC_PNT")
			if name, ok := hdu.Header.Str("INSTRUME"); ok {
				if spec, err := Get(name); err == nil {
					obs.Inst = spec
				}
			}
		}
	}
	ra, dec := table.Col("RA"), table.Col("DEC")
	en, ch := table.Col("ENERGY"), table.Col("CHANNEL")
	if ra == nil || dec == nil || en == nil || ch == nil {
		return nil, fmt.Errorf("%s: EVENTS table is missing columns", path)
	}
	obs.RA = ra.Floats
	obs.Dec = dec.Floats
	obs.Channel = ch.Ints
	obs.Energy = make([]float64, len(en.Floats32))
	for i, e := range en.Floats32 {
		obs.Energy[i] = float64(e)
	}
	return obs, nil
}

func (o *Observation) setObsKeys(h *fits.Header) {
	h.Set("TELESCOP", "MOCK", "")
	h.Set("INSTRUME", o.Inst.Name, "")
	h.Set("EXPOSURE", o.Exposure, "exposure time [s]")
	h.Set("RA_PNT", o.SkyCenter[0], "pointing RA [deg]")
	h.Set("DEC_PNT", o.SkyCenter[1], "pointing Dec [deg]")
	h.Set("RADESYS", "FK5", "")
	h.Set("EQUINOX", 2000.0, "")
}

// BinImage bins the events in [emin, emax] keV onto an n x n sky image
// covering the field of view around the pointing.
func (o *Observation) BinImage(emin, emax float64, n int) (*fits.Image, error) {
	if n < 1 {
		return nil, fmt.Errorf("image side must be positive, got %d", n)
	}
	if emax <= emin {
		return nil, fmt.Errorf("invalid energy band [%g, %g]", emin, emax)
	}
	im := fits.NewImage(n, n)
	fovDeg := o.Inst.FOV / 60.0
	// Pixel scale in tangent-plane degrees; RA increases to the left.
	for i, e := range o.Energy {
		if e < emin || e > emax {
			continue
		}
		x := (o.SkyCenter[0] - o.RA[i]) / fovDeg * math.Cos(units.DegToRad(o.SkyCenter[1]))
		y := (o.Dec[i] - o.SkyCenter[1]) / fovDeg
		px := int((x + 0.5) * float64(n))
		py := int((y + 0.5) * float64(n))
		if px < 0 || px >= n || py < 0 || py >= n {
			continue
		}
		im.Set(px, py, im.At(px, py)+1)
	}
	return im, nil
}

// WriteImage bins the band image and stores it with a tangent-plane WCS.
func (o *Observation) WriteImage(path string, emin, emax float64, n int) error {
	im, err := o.BinImage(emin, emax, n)
	if err != nil {
		return err
	}
	hdu := fits.NewImageHDU("IMAGE", im)
	h := hdu.Header
	o.setObsKeys(h)
	fovDeg := o.Inst.FOV / 60.0
	h.Set("CTYPE1", "RA---TAN", "")
	h.Set("CTYPE2", "DEC--TAN", "")
	h.Set("CRPIX1", float64(n+1)/2.0, "")
	h.Set("CRPIX2", float64(n+1)/2.0, "")
	h.Set("CRVAL1", o.SkyCenter[0], "")
	h.Set("CRVAL2", o.SkyCenter[1], "")
	h.Set("CDELT1", -fovDeg/float64(n), "deg/pixel")
	h.Set("CDELT2", fovDeg/float64(n), "deg/pixel")
	h.Set("EMIN", emin, "lower band edge [keV]")
	h.Set("EMAX", emax, "upper band edge [keV]")
	return fits.WriteFile(path, fits.NewPrimaryHDU(), hdu)
}

// BinSpectrum returns the counts in each detector channel.
func (o *Observation) BinSpectrum() []int32 {
	counts := make([]int32, o.Inst.NumChannels)
	for _, ch := range o.Channel {
		if int(ch) >= 0 && int(ch) < len(counts) {
			counts[ch]++
		}
	}
	return counts
}

// WritePHA stores the binned spectrum as a PHA FITS file with a SPECTRUM
// extension. Channel energy bounds are included so the spectrum can be
// plotted without a separate response file.
func (o *Observation) WritePHA(path string) error {
	counts := o.BinSpectrum()
	n := len(counts)
	channels := make([]int32, n)
	elo := make([]float32, n)
	ehi := make([]float32, n)
	dch := (o.Inst.ChanEmax - o.Inst.ChanEmin) / float64(n)
	for i := 0; i < n; i++ {
		channels[i] = int32(i)
		elo[i] = float32(o.Inst.ChanEmin + float64(i)*dch)
		ehi[i] = float32(o.Inst.ChanEmin + float64(i+1)*dch)
	}
	table := &fits.Table{
		Name: "SPECTRUM",
		Cols: []fits.Column{
			fits.IntColumn("CHANNEL", "", channels),
			fits.IntColumn("COUNTS", "count", counts),
			fits.Float32Column("E_MIN", "keV", elo),
			fits.Float32Column("E_MAX", "keV", ehi),
		},
	}
	hdu, err := fits.NewTableHDU(table)
	if err != nil {
		return fmt.Errorf("building SPECTRUM table: %w", err)
	}
	h := hdu.Header
	o.setObsKeys(h)
	h.Set("HDUCLAS1", "SPECTRUM", "")
	h.Set("CHANTYPE", "PI", "")
	h.Set("DETCHANS", n, "")
	h.Set("BACKSCAL", 1.0, "")
	h.Set("AREASCAL", 1.0, "")
	return fits.WriteFile(path, fits.NewPrimaryHDU(), hdu)
}
