package spectra

import (
	"math"
	"testing"
)

// TestNewThermalModel checks configuration validation.
func TestNewThermalModel(t *testing.T) {
	m, err := NewThermalModel("apec", 0.1, 10.0, 2000, true)
	if err != nil {
		t.Fatalf("NewThermalModel returned error: %v", err)
	}
	if m.NBins != 2000 || !m.Broadening {
		t.Errorf("Model fields not stored: %+v", m)
	}

	if _, err := NewThermalModel("mekal", 0.1, 10.0, 2000, true); err == nil {
		t.Errorf("Expected error for unsupported model name")
	}
	if _, err := NewThermalModel("apec", 5.0, 1.0, 2000, true); err == nil {
		t.Errorf("Expected error for inverted energy range")
	}
}

// TestThermalSpectrumShape checks the exponential continuum cutoff: a hotter
// plasma emits relatively more hard flux.
func TestThermalSpectrumShape(t *testing.T) {
	m, _ := NewThermalModel("apec", 0.2, 10.0, 2000, false)
	cool, err := m.Spectrum(2.0, 0.0, 0.0, 1.0e-3)
	if err != nil {
		t.Fatalf("Spectrum returned error: %v", err)
	}
	hot, err := m.Spectrum(8.0, 0.0, 0.0, 1.0e-3)
	if err != nil {
		t.Fatalf("Spectrum returned error: %v", err)
	}
	coolHard, _, _ := cool.FluxInBand(5.0, 10.0)
	coolSoft, _, _ := cool.FluxInBand(0.5, 2.0)
	hotHard, _, _ := hot.FluxInBand(5.0, 10.0)
	hotSoft, _, _ := hot.FluxInBand(0.5, 2.0)
	if hotHard/hotSoft <= coolHard/coolSoft {
		t.Errorf("Hard-to-soft ratio did not increase with temperature: %g vs %g",
			hotHard/hotSoft, coolHard/coolSoft)
	}
}

// TestThermalMetallicity verifies that metal lines add flux on top of the
// zero-abundance continuum, most prominently at the Fe XXV line.
func TestThermalMetallicity(t *testing.T) {
	m, _ := NewThermalModel("apec", 0.2, 10.0, 2000, false)
	bare, _ := m.Spectrum(5.0, 0.0, 0.0, 1.0e-3)
	metal, _ := m.Spectrum(5.0, 0.5, 0.0, 1.0e-3)
	if metal.TotalFlux() <= bare.TotalFlux() {
		t.Errorf("Metal abundance did not increase total flux")
	}
	bareFe, _, _ := bare.FluxInBand(6.5, 6.9)
	metalFe, _, _ := metal.FluxInBand(6.5, 6.9)
	if metalFe <= bareFe {
		t.Errorf("Expected Fe XXV line emission with nonzero abundance")
	}

	// Line flux should scale linearly with abundance.
	metal2, _ := m.Spectrum(5.0, 1.0, 0.0, 1.0e-3)
	line1 := metalFe - bareFe
	fe2, _, _ := metal2.FluxInBand(6.5, 6.9)
	line2 := fe2 - bareFe
	if math.Abs(line2-2.0*line1) > 0.05*line2 {
		t.Errorf("Line flux not linear in abundance: %g vs 2*%g", line2, line1)
	}
}

// TestThermalBroadening verifies that broadening spreads the Fe XXV line
// without changing its integrated flux much.
func TestThermalBroadening(t *testing.T) {
	narrow, _ := NewThermalModel("apec", 0.2, 10.0, 4000, false)
	broad, _ := NewThermalModel("apec", 0.2, 10.0, 4000, true)
	sn, _ := narrow.Spectrum(8.0, 1.0, 0.0, 1.0e-3)
	sb, _ := broad.Spectrum(8.0, 1.0, 0.0, 1.0e-3)

	// Peak flux density near 6.7 keV drops when the line is spread out.
	peak := func(s *Spectrum) float64 {
		m := 0.0
		for i, e := range s.Emid() {
			if e > 6.5 && e < 6.9 && s.Flux[i] > m {
				m = s.Flux[i]
			}
		}
		return m
	}
	if peak(sb) >= peak(sn) {
		t.Errorf("Broadening did not lower the line peak: %g vs %g", peak(sb), peak(sn))
	}

	fn, _, _ := sn.FluxInBand(6.3, 7.1)
	fb, _, _ := sb.FluxInBand(6.3, 7.1)
	if math.Abs(fn-fb) > 0.1*fn {
		t.Errorf("Broadening changed the integrated line flux: %g vs %g", fn, fb)
	}
}

// TestThermalNormScaling verifies the XSPEC-convention linear norm scaling.
func TestThermalNormScaling(t *testing.T) {
	m, _ := NewThermalModel("apec", 0.2, 10.0, 1000, false)
	a, _ := m.Spectrum(4.0, 0.3, 0.1, 1.0e-3)
	b, _ := m.Spectrum(4.0, 0.3, 0.1, 2.0e-3)
	if math.Abs(b.TotalFlux()-2.0*a.TotalFlux()) > 1e-9*b.TotalFlux() {
		t.Errorf("Flux not linear in norm: %g vs 2*%g", b.TotalFlux(), a.TotalFlux())
	}
}

// TestThermalInvalidState verifies parameter validation.
func TestThermalInvalidState(t *testing.T) {
	m, _ := NewThermalModel("apec", 0.2, 10.0, 1000, false)
	if _, err := m.Spectrum(-1.0, 0.3, 0.0, 1.0e-3); err == nil {
		t.Errorf("Expected error for negative temperature")
	}
	if _, err := m.Spectrum(4.0, -0.3, 0.0, 1.0e-3); err == nil {
		t.Errorf("Expected error for negative abundance")
	}
}
