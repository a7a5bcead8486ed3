// Package simput reads and writes SIMPUT files, the FITS-based interchange
// format that hands simulated X-ray sources to instrument simulators. A file
// carries a source catalog extension (SRC_CAT) and, for photon-list sources,
// a PHLIST extension with one row per sample photon.
package simput

import (
	"fmt"

	"github.com/rainerweinberger/soxs/internal/units"
	"github.com/rainerweinberger/soxs/pkg/events"
	"github.com/rainerweinberger/soxs/pkg/fits"
)

// Write stores the event list as a single photon-list source named name.
// The catalog FLUX column records the sample's energy flux over its full
// energy range.
func Write(path, name string, evts *events.List) error {
	if evts == nil || evts.NEvents() == 0 {
		return fmt.Errorf("event list is empty")
	}
	emin, emax := evts.Energy[0], evts.Energy[0]
	var ergs float64
	for _, e := range evts.Energy {
		if e < emin {
			emin = e
		}
		if e > emax {
			emax = e
		}
		ergs += e * units.ErgPerKeV
	}
	flux := ergs / evts.ExposureTime / evts.Area

	srcCat := &fits.Table{
		Name: "SRC_CAT",
		Cols: []fits.Column{
			fits.IntColumn("SRC_ID", "", []int32{1}),
			fits.StringColumn("SRC_NAME", "", 24, []string{name}),
			fits.FloatColumn("RA", "deg", []float64{evts.SkyCenter[0]}),
			fits.FloatColumn("DEC", "deg", []float64{evts.SkyCenter[1]}),
			fits.Float32Column("E_MIN", "keV", []float32{float32(emin)}),
			fits.Float32Column("E_MAX", "keV", []float32{float32(emax)}),
			fits.Float32Column("FLUX", "erg/s/cm**2", []float32{float32(flux)}),
			fits.StringColumn("SPECTRUM", "", 24, []string{"[PHLIST,1]"}),
			fits.StringColumn("IMAGE", "", 24, []string{"NULL"}),
			fits.StringColumn("TIMING", "", 24, []string{"NULL"}),
		},
	}
	catHDU, err := fits.NewTableHDU(srcCat)
	if err != nil {
		return fmt.Errorf("building SRC_CAT: %w", err)
	}
	setSimputKeys(catHDU, "SRC_CAT")

	energies := make([]float32, evts.NEvents())
	for i, e := range evts.Energy {
		energies[i] = float32(e)
	}
	phlist := &fits.Table{
		Name: "PHLIST",
		Cols: []fits.Column{
			fits.Float32Column("ENERGY", "keV", energies),
			fits.FloatColumn("RA", "deg", evts.RA),
			fits.FloatColumn("DEC", "deg", evts.Dec),
		},
	}
	phHDU, err := fits.NewTableHDU(phlist)
	if err != nil {
		return fmt.Errorf("building PHLIST: %w", err)
	}
	setSimputKeys(phHDU, "PHOTONS")
	phHDU.Header.Set("EXPOSURE", evts.ExposureTime, "sampling exposure time [s]")
	phHDU.Header.Set("REFAREA", evts.Area, "sampling collecting area [cm**2]")

	return fits.WriteFile(path, fits.NewPrimaryHDU(), catHDU, phHDU)
}

func setSimputKeys(hdu *fits.HDU, class2 string) {
	hdu.Header.Set("HDUCLASS", "HEASARC/SIMPUT", "")
	hdu.Header.Set("HDUCLAS1", "SIMPUT", "")
	hdu.Header.Set("HDUCLAS2", class2, "")
	hdu.Header.Set("HDUVERS", "1.1.0", "")
	hdu.Header.Set("RADESYS", "FK5", "")
	hdu.Header.Set("EQUINOX", 2000.0, "")
}

// Read loads a photon-list SIMPUT file back into an event list.
func Read(path string) (*events.List, error) {
	hdus, err := fits.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cat, err := fits.FindTable(hdus, "SRC_CAT")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ph, err := fits.FindTable(hdus, "PHLIST")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var exposure, area float64
	for _, hdu := range hdus {
		if hdu.Table == ph {
			exposure, _ = hdu.Header.Float("EXPOSURE")
			area, _ = hdu.Header.Float("REFAREA")
		}
	}
	if exposure <= 0 || area <= 0 {
		return nil, fmt.Errorf("%s: PHLIST lacks EXPOSURE/REFAREA keywords", path)
	}

	energyCol := ph.Col("ENERGY")
	raCol := ph.Col("RA")
	decCol := ph.Col("DEC")
	if energyCol == nil || raCol == nil || decCol == nil {
		return nil, fmt.Errorf("%s: PHLIST is missing photon columns", path)
	}
	evts := &events.List{
		ExposureTime: exposure,
		Area:         area,
		RA:           raCol.Floats,
		Dec:          decCol.Floats,
	}
	evts.Energy = make([]float64, len(energyCol.Floats32))
	for i, e := range energyCol.Floats32 {
		evts.Energy[i] = float64(e)
	}

	if ra := cat.Col("RA"); ra != nil && len(ra.Floats) > 0 {
		evts.SkyCenter[0] = ra.Floats[0]
	}
	if dec := cat.Col("DEC"); dec != nil && len(dec.Floats) > 0 {
		evts.SkyCenter[1] = dec.Floats[0]
	}
	return evts, nil
}
