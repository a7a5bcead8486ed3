package fits

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
)

// TestFormatCard verifies the fixed-width card layout for each value type.
func TestFormatCard(t *testing.T) {
	rec, err := formatCard(Card{Keyword: "SIMPLE", Value: true, Comment: "conforms"})
	if err != nil {
		t.Fatalf("formatCard returned error: %v", err)
	}
	if len(rec) != 80 {
		t.Fatalf("Expected 80-byte card, got %d bytes", len(rec))
	}
	if string(rec[:10]) != "SIMPLE  = " {
		t.Errorf("Bad keyword field: %q", string(rec[:10]))
	}
	if rec[29] != 'T' {
		t.Errorf("Expected logical T at column 30, got %q", rec[29])
	}

	rec, err = formatCard(Card{Keyword: "NAXIS1", Value: 512})
	if err != nil {
		t.Fatalf("formatCard returned error: %v", err)
	}
	card, end, err := parseCard(rec)
	if err != nil || end {
		t.Fatalf("parseCard failed: %v end=%v", err, end)
	}
	if v, ok := card.Value.(int); !ok || v != 512 {
		t.Errorf("Expected integer 512, got %v", card.Value)
	}
}

// TestCardRoundTrip checks that values survive format/parse cycles.
func TestCardRoundTrip(t *testing.T) {
	cases := []Card{
		{Keyword: "EXPOSURE", Value: 1.0e5, Comment: "exposure time"},
		{Keyword: "TELESCOP", Value: "chandra", Comment: ""},
		{Keyword: "NH", Value: 0.04, Comment: "column density"},
		{Keyword: "EXTEND", Value: false, Comment: ""},
	}
	for _, c := range cases {
		rec, err := formatCard(c)
		if err != nil {
			t.Fatalf("formatCard(%s) returned error: %v", c.Keyword, err)
		}
		got, end, err := parseCard(rec)
		if err != nil || end {
			t.Fatalf("parseCard(%s) failed: %v", c.Keyword, err)
		}
		switch want := c.Value.(type) {
		case float64:
			f, ok := got.Value.(float64)
			if !ok || math.Abs(f-want) > 1e-12*math.Abs(want) {
				t.Errorf("%s: expected %v, got %v", c.Keyword, want, got.Value)
			}
		default:
			if got.Value != c.Value {
				t.Errorf("%s: expected %v, got %v", c.Keyword, c.Value, got.Value)
			}
		}
	}
}

// TestImageRoundTrip writes and reads back a primary HDU plus image extension.
func TestImageRoundTrip(t *testing.T) {
	im := NewImage(8, 4)
	for i := range im.Pix {
		im.Pix[i] = float64(i) * 0.5
	}
	prim := NewPrimaryHDU()
	prim.Header.Set("OBSERVER", "pipeline", "")
	imHDU := NewImageHDU("SKYMAP", im)
	imHDU.Header.Set("CRVAL1", 30.0, "RA of reference pixel")

	var buf bytes.Buffer
	if err := Write(&buf, prim, imHDU); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if buf.Len()%BlockSize != 0 {
		t.Errorf("Output length %d is not a multiple of %d", buf.Len(), BlockSize)
	}

	hdus, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(hdus) != 2 {
		t.Fatalf("Expected 2 HDUs, got %d", len(hdus))
	}
	if hdus[1].Image == nil {
		t.Fatalf("Second HDU has no image data")
	}
	got := hdus[1].Image
	if got.Width != 8 || got.Height != 4 {
		t.Errorf("Expected 8x4 image, got %dx%d", got.Width, got.Height)
	}
	for i := range im.Pix {
		if got.Pix[i] != im.Pix[i] {
			t.Errorf("Pixel %d: expected %g, got %g", i, im.Pix[i], got.Pix[i])
		}
	}
	if ra, ok := hdus[1].Header.Float("CRVAL1"); !ok || ra != 30.0 {
		t.Errorf("Expected CRVAL1=30, got %v", ra)
	}
}

// TestTableRoundTrip writes and reads back a binary table with mixed columns.
func TestTableRoundTrip(t *testing.T) {
	table := &Table{
		Name: "EVENTS",
		Cols: []Column{
			FloatColumn("RA", "deg", []float64{30.0, 30.1, 29.9}),
			FloatColumn("DEC", "deg", []float64{45.0, 44.9, 45.05}),
			Float32Column("ENERGY", "keV", []float32{1.5, 0.7, 6.4}),
			IntColumn("CHANNEL", "", []int32{150, 70, 640}),
			StringColumn("SPECTRUM", "", 16, []string{"src_1", "src_1", "src_1"}),
		},
	}
	hdu, err := NewTableHDU(table)
	if err != nil {
		t.Fatalf("NewTableHDU returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "events.fits")
	if err := WriteFile(path, NewPrimaryHDU(), hdu); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	hdus, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	got, err := FindTable(hdus, "EVENTS")
	if err != nil {
		t.Fatalf("FindTable returned error: %v", err)
	}
	if got.NRows() != 3 {
		t.Fatalf("Expected 3 rows, got %d", got.NRows())
	}
	ra := got.Col("RA")
	if ra == nil || ra.Floats[1] != 30.1 {
		t.Errorf("RA column did not round-trip: %+v", ra)
	}
	en := got.Col("ENERGY")
	if en == nil || en.Floats32[2] != 6.4 {
		t.Errorf("ENERGY column did not round-trip: %+v", en)
	}
	ch := got.Col("CHANNEL")
	if ch == nil || ch.Ints[0] != 150 {
		t.Errorf("CHANNEL column did not round-trip: %+v", ch)
	}
	sp := got.Col("SPECTRUM")
	if sp == nil || sp.Strings[0] != "src_1" {
		t.Errorf("SPECTRUM column did not round-trip: %+v", sp)
	}
}

// TestTableMismatchedColumns verifies the row-count validation.
func TestTableMismatchedColumns(t *testing.T) {
	table := &Table{
		Name: "BAD",
		Cols: []Column{
			FloatColumn("A", "", []float64{1, 2, 3}),
			FloatColumn("B", "", []float64{1, 2}),
		},
	}
	if _, err := NewTableHDU(table); err == nil {
		t.Errorf("Expected error for mismatched column lengths")
	}
}

// TestFindTableMissing verifies the error for an absent extension.
func TestFindTableMissing(t *testing.T) {
	if _, err := FindTable([]*HDU{NewPrimaryHDU()}, "NOPE"); err == nil {
		t.Errorf("Expected error for missing extension")
	}
}
