// Package plots renders the pipeline's diagnostic figures: grid slice maps,
// binned counts images, and detector spectra.
package plots

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rainerweinberger/soxs/pkg/fits"
)

// grid adapts a row-major value slice to the plotter.GridXYZ interface.
type grid struct {
	vals       []float64
	w, h       int
	xmin, xmax float64
	ymin, ymax float64
}

func (g *grid) Dims() (int, int) { return g.w, g.h }

func (g *grid) Z(c, r int) float64 { return g.vals[r*g.w+c] }

func (g *grid) X(c int) float64 {
	return g.xmin + (float64(c)+0.5)*(g.xmax-g.xmin)/float64(g.w)
}

func (g *grid) Y(r int) float64 {
	return g.ymin + (float64(r)+0.5)*(g.ymax-g.ymin)/float64(g.h)
}

// SaveSliceMap renders a field slice as a heat map. The slice values are
// row-major with dimensions w x h, covering a square of the given width in
// kpc centered on the box center. Logarithmic scaling is applied since the
// fields span several decades.
func SaveSliceMap(vals []float64, w, h int, width float64, title, path string) error {
	if len(vals) != w*h {
		return fmt.Errorf("slice has %d values for %dx%d pixels", len(vals), w, h)
	}
	logged := make([]float64, len(vals))
	for i, v := range vals {
		if v <= 0 {
			v = 1e-300
		}
		logged[i] = math.Log10(v)
	}
	g := &grid{
		vals: logged, w: w, h: h,
		xmin: -width / 2, xmax: width / 2,
		ymin: -width / 2, ymax: width / 2,
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x [kpc]"
	p.Y.Label.Text = "y [kpc]"
	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	p.Add(hm)
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// SaveCountsImage renders a binned counts image covering the instrument's
// field of view, given in arcmin.
func SaveCountsImage(im *fits.Image, fovArcmin float64, title, path string) error {
	if im == nil || len(im.Pix) == 0 {
		return fmt.Errorf("counts image is empty")
	}
	g := &grid{
		vals: im.Pix, w: im.Width, h: im.Height,
		xmin: -fovArcmin / 2, xmax: fovArcmin / 2,
		ymin: -fovArcmin / 2, ymax: fovArcmin / 2,
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "offset [arcmin]"
	p.Y.Label.Text = "offset [arcmin]"
	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	p.Add(hm)
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// SaveSpectrum renders a binned detector spectrum as count rate per keV
// against channel energy, on logarithmic axes. Empty channels are skipped
// so the log scale stays finite. Channels outside [emin, emax] keV are not
// drawn.
func SaveSpectrum(counts []int32, chanEmin, chanEmax, exposure float64,
	emin, emax float64, title, path string) error {
	if len(counts) == 0 {
		return fmt.Errorf("spectrum has no channels")
	}
	if exposure <= 0 {
		return fmt.Errorf("exposure must be positive, got %g s", exposure)
	}
	dch := (chanEmax - chanEmin) / float64(len(counts))
	var pts plotter.XYs
	for i, c := range counts {
		if c == 0 {
			continue
		}
		e := chanEmin + (float64(i)+0.5)*dch
		if e < emin || e > emax {
			continue
		}
		pts = append(pts, plotter.XY{X: e, Y: float64(c) / exposure / dch})
	}
	if len(pts) == 0 {
		return fmt.Errorf("no counts in the display band [%g, %g] keV", emin, emax)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "energy [keV]"
	p.Y.Label.Text = "count rate [counts/s/keV]"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building spectrum line: %w", err)
	}
	p.Add(line)
	return p.Save(7*vg.Inch, 5*vg.Inch, path)
}

// SaveSpectrumFile renders the spectrum stored in a PHA file written by the
// instrument simulator.
func SaveSpectrumFile(phaPath string, emin, emax float64, title, outPath string) error {
	hdus, err := fits.ReadFile(phaPath)
	if err != nil {
		return err
	}
	table, err := fits.FindTable(hdus, "SPECTRUM")
	if err != nil {
		return fmt.Errorf("%s: %w", phaPath, err)
	}
	countsCol := table.Col("COUNTS")
	elo := table.Col("E_MIN")
	ehi := table.Col("E_MAX")
	if countsCol == nil || elo == nil || ehi == nil {
		return fmt.Errorf("%s: SPECTRUM table is missing columns", phaPath)
	}
	var exposure float64
	for _, hdu := range hdus {
		if hdu.Table == table {
			exposure, _ = hdu.Header.Float("EXPOSURE")
		}
	}
	if exposure <= 0 {
		return fmt.Errorf("%s: SPECTRUM lacks a positive EXPOSURE keyword", phaPath)
	}
	n := len(countsCol.Ints)
	chanEmin := float64(elo.Floats32[0])
	chanEmax := float64(ehi.Floats32[n-1])
	return SaveSpectrum(countsCol.Ints, chanEmin, chanEmax, exposure, emin, emax, title, outPath)
}
