package fits

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Image is a 2D floating-point image. Pixels are stored row-major with the
// first axis varying fastest, matching the FITS array ordering.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// NewImage allocates a zeroed image.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the pixel at column x, row y.
func (im *Image) At(x, y int) float64 {
	return im.Pix[y*im.Width+x]
}

// Set assigns the pixel at column x, row y.
func (im *Image) Set(x, y int, v float64) {
	im.Pix[y*im.Width+x] = v
}

// Sum returns the total of all pixel values.
func (im *Image) Sum() float64 {
	var s float64
	for _, v := range im.Pix {
		s += v
	}
	return s
}

// Column is one field of a binary table. Exactly one of the data slices is
// populated, according to Format: "D" float64, "E" float32, "J" int32, or
// "rA" fixed-width strings.
type Column struct {
	Name     string
	Format   string
	Unit     string
	Floats   []float64
	Floats32 []float32
	Ints     []int32
	Strings  []string
}

// FloatColumn builds a double-precision column.
func FloatColumn(name, unit string, vals []float64) Column {
	return Column{Name: name, Format: "D", Unit: unit, Floats: vals}
}

// Float32Column builds a single-precision column.
func Float32Column(name, unit string, vals []float32) Column {
	return Column{Name: name, Format: "E", Unit: unit, Floats32: vals}
}

// IntColumn builds a 32-bit integer column.
func IntColumn(name, unit string, vals []int32) Column {
	return Column{Name: name, Format: "J", Unit: unit, Ints: vals}
}

// StringColumn builds a fixed-width ASCII column.
func StringColumn(name, unit string, width int, vals []string) Column {
	return Column{Name: name, Format: fmt.Sprintf("%dA", width), Unit: unit, Strings: vals}
}

// length returns the number of rows held by the column.
func (c *Column) length() int {
	switch {
	case c.Floats != nil:
		return len(c.Floats)
	case c.Floats32 != nil:
		return len(c.Floats32)
	case c.Ints != nil:
		return len(c.Ints)
	default:
		return len(c.Strings)
	}
}

// fieldBytes returns the per-row byte width of the column.
func (c *Column) fieldBytes() (int, error) {
	switch c.Format {
	case "D":
		return 8, nil
	case "E", "J":
		return 4, nil
	default:
		if strings.HasSuffix(c.Format, "A") {
			w, err := strconv.Atoi(strings.TrimSuffix(c.Format, "A"))
			if err != nil || w <= 0 {
				return 0, fmt.Errorf("bad string column format %q", c.Format)
			}
			return w, nil
		}
	}
	return 0, fmt.Errorf("unsupported column format %q", c.Format)
}

// Table is a FITS binary table extension.
type Table struct {
	Name string
	Cols []Column
}

// NRows returns the table row count.
func (t *Table) NRows() int {
	if len(t.Cols) == 0 {
		return 0
	}
	return t.Cols[0].length()
}

// Col returns the named column, or nil.
func (t *Table) Col(name string) *Column {
	for i := range t.Cols {
		if t.Cols[i].Name == name {
			return &t.Cols[i]
		}
	}
	return nil
}

// HDU is a single header-data unit. Primary HDUs carry only a header;
// extensions carry either an image or a binary table.
type HDU struct {
	Header *Header
	Image  *Image
	Table  *Table
}

// NewPrimaryHDU returns a data-less primary HDU with the mandatory cards.
func NewPrimaryHDU() *HDU {
	h := NewHeader()
	h.Set("SIMPLE", true, "conforms to FITS standard")
	h.Set("BITPIX", 8, "array data type")
	h.Set("NAXIS", 0, "number of array dimensions")
	h.Set("EXTEND", true, "extensions may be present")
	return &HDU{Header: h}
}

// NewImageHDU wraps an image in an extension HDU named extname.
func NewImageHDU(extname string, im *Image) *HDU {
	h := NewHeader()
	h.Set("XTENSION", "IMAGE", "image extension")
	h.Set("BITPIX", -64, "array data type")
	h.Set("NAXIS", 2, "number of array dimensions")
	h.Set("NAXIS1", im.Width, "")
	h.Set("NAXIS2", im.Height, "")
	h.Set("PCOUNT", 0, "")
	h.Set("GCOUNT", 1, "")
	h.Set("EXTNAME", extname, "extension name")
	return &HDU{Header: h, Image: im}
}

// NewTableHDU wraps a binary table in an extension HDU. Column bookkeeping
// cards are generated from the table definition.
func NewTableHDU(t *Table) (*HDU, error) {
	rowBytes := 0
	nrows := t.NRows()
	for i := range t.Cols {
		if t.Cols[i].length() != nrows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d",
				t.Cols[i].Name, t.Cols[i].length(), nrows)
		}
		fb, err := t.Cols[i].fieldBytes()
		if err != nil {
			return nil, err
		}
		rowBytes += fb
	}
	h := NewHeader()
	h.Set("XTENSION", "BINTABLE", "binary table extension")
	h.Set("BITPIX", 8, "array data type")
	h.Set("NAXIS", 2, "number of array dimensions")
	h.Set("NAXIS1", rowBytes, "length of table row in bytes")
	h.Set("NAXIS2", nrows, "number of rows")
	h.Set("PCOUNT", 0, "")
	h.Set("GCOUNT", 1, "")
	h.Set("TFIELDS", len(t.Cols), "number of fields per row")
	h.Set("EXTNAME", t.Name, "extension name")
	for i, c := range t.Cols {
		h.Set(fmt.Sprintf("TTYPE%d", i+1), c.Name, "")
		h.Set(fmt.Sprintf("TFORM%d", i+1), c.Format, "")
		if c.Unit != "" {
			h.Set(fmt.Sprintf("TUNIT%d", i+1), c.Unit, "")
		}
	}
	return &HDU{Header: h, Table: t}, nil
}

// Write encodes the HDUs in order to w.
func Write(w io.Writer, hdus ...*HDU) error {
	bw := bufio.NewWriter(w)
	for i, hdu := range hdus {
		if err := writeHeader(bw, hdu.Header); err != nil {
			return fmt.Errorf("encoding header of HDU %d: %w", i, err)
		}
		if err := writeData(bw, hdu); err != nil {
			return fmt.Errorf("encoding data of HDU %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// WriteFile encodes the HDUs to the named file, overwriting it.
func WriteFile(path string, hdus ...*HDU) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating FITS file: %w", err)
	}
	defer f.Close()
	if err := Write(f, hdus...); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeHeader(w io.Writer, h *Header) error {
	written := 0
	for _, c := range h.cards {
		rec, err := formatCard(c)
		if err != nil {
			return err
		}
		if _, err := w.Write(rec); err != nil {
			return err
		}
		written += cardLen
	}
	end, err := formatCard(Card{Keyword: "END"})
	if err != nil {
		return err
	}
	if _, err := w.Write(end); err != nil {
		return err
	}
	written += cardLen
	return writePad(w, written, ' ')
}

func writeData(w io.Writer, hdu *HDU) error {
	switch {
	case hdu.Image != nil:
		n := 0
		buf := make([]byte, 8)
		for _, v := range hdu.Image.Pix {
			binary.BigEndian.PutUint64(buf, math.Float64bits(v))
			if _, err := w.Write(buf); err != nil {
				return err
			}
			n += 8
		}
		return writePad(w, n, 0)
	case hdu.Table != nil:
		return writeTableData(w, hdu.Table)
	default:
		return nil
	}
}

func writeTableData(w io.Writer, t *Table) error {
	nrows := t.NRows()
	widths := make([]int, len(t.Cols))
	rowBytes := 0
	for i := range t.Cols {
		fb, err := t.Cols[i].fieldBytes()
		if err != nil {
			return err
		}
		widths[i] = fb
		rowBytes += fb
	}
	row := make([]byte, rowBytes)
	for r := 0; r < nrows; r++ {
		off := 0
		for i := range t.Cols {
			c := &t.Cols[i]
			switch c.Format {
			case "D":
				binary.BigEndian.PutUint64(row[off:], math.Float64bits(c.Floats[r]))
			case "E":
				binary.BigEndian.PutUint32(row[off:], math.Float32bits(c.Floats32[r]))
			case "J":
				binary.BigEndian.PutUint32(row[off:], uint32(c.Ints[r]))
			default:
				for k := 0; k < widths[i]; k++ {
					row[off+k] = ' '
				}
				copy(row[off:off+widths[i]], c.Strings[r])
			}
			off += widths[i]
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return writePad(w, nrows*rowBytes, 0)
}

func writePad(w io.Writer, written int, fill byte) error {
	n := padLen(written)
	if n == 0 {
		return nil
	}
	pad := make([]byte, n)
	if fill != 0 {
		for i := range pad {
			pad[i] = fill
		}
	}
	_, err := w.Write(pad)
	return err
}

// Read decodes all HDUs from r.
func Read(r io.Reader) ([]*HDU, error) {
	br := bufio.NewReader(r)
	var hdus []*HDU
	for {
		h, err := readHeader(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading header of HDU %d: %w", len(hdus), err)
		}
		hdu, err := readData(br, h)
		if err != nil {
			return nil, fmt.Errorf("reading data of HDU %d: %w", len(hdus), err)
		}
		hdus = append(hdus, hdu)
	}
	if len(hdus) == 0 {
		return nil, fmt.Errorf("no HDUs found")
	}
	return hdus, nil
}

// ReadFile decodes all HDUs from the named file.
func ReadFile(path string) ([]*HDU, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	hdus, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return hdus, nil
}

// FindTable returns the first binary table extension named extname.
func FindTable(hdus []*HDU, extname string) (*Table, error) {
	for _, hdu := range hdus {
		if hdu.Table != nil && hdu.Table.Name == extname {
			return hdu.Table, nil
		}
	}
	return nil, fmt.Errorf("no binary table extension named %q", extname)
}

func readHeader(r *bufio.Reader) (*Header, error) {
	h := NewHeader()
	block := make([]byte, BlockSize)
	done := false
	read := false
	for !done {
		if _, err := io.ReadFull(r, block); err != nil {
			if !read && (err == io.EOF || err == io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		read = true
		for off := 0; off < BlockSize; off += cardLen {
			card, end, err := parseCard(block[off : off+cardLen])
			if err != nil {
				return nil, err
			}
			if end {
				done = true
				break
			}
			if card != nil {
				h.cards = append(h.cards, *card)
			}
		}
	}
	return h, nil
}

func readData(r *bufio.Reader, h *Header) (*HDU, error) {
	hdu := &HDU{Header: h}
	xtension, _ := h.Str("XTENSION")
	naxis, _ := h.Int("NAXIS")
	switch {
	case xtension == "BINTABLE":
		t, size, err := readTableData(r, h)
		if err != nil {
			return nil, err
		}
		hdu.Table = t
		if err := skipPad(r, size); err != nil {
			return nil, err
		}
	case naxis == 2:
		bitpix, _ := h.Int("BITPIX")
		if bitpix != -64 {
			return nil, fmt.Errorf("unsupported image BITPIX %d", bitpix)
		}
		w, _ := h.Int("NAXIS1")
		ht, _ := h.Int("NAXIS2")
		im := NewImage(w, ht)
		buf := make([]byte, 8)
		for i := range im.Pix {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			im.Pix[i] = math.Float64frombits(binary.BigEndian.Uint64(buf))
		}
		hdu.Image = im
		if err := skipPad(r, 8*len(im.Pix)); err != nil {
			return nil, err
		}
	case naxis == 0:
		// Header-only HDU, nothing to read.
	default:
		return nil, fmt.Errorf("unsupported HDU with NAXIS=%d", naxis)
	}
	return hdu, nil
}

func readTableData(r *bufio.Reader, h *Header) (*Table, int, error) {
	rowBytes, _ := h.Int("NAXIS1")
	nrows, _ := h.Int("NAXIS2")
	nfields, _ := h.Int("TFIELDS")
	name, _ := h.Str("EXTNAME")
	t := &Table{Name: name}
	widths := make([]int, nfields)
	total := 0
	for i := 0; i < nfields; i++ {
		cname, _ := h.Str(fmt.Sprintf("TTYPE%d", i+1))
		format, _ := h.Str(fmt.Sprintf("TFORM%d", i+1))
		unit, _ := h.Str(fmt.Sprintf("TUNIT%d", i+1))
		c := Column{Name: cname, Format: format, Unit: unit}
		switch format {
		case "D":
			c.Floats = make([]float64, nrows)
		case "E":
			c.Floats32 = make([]float32, nrows)
		case "J":
			c.Ints = make([]int32, nrows)
		default:
			c.Strings = make([]string, nrows)
		}
		fb, err := c.fieldBytes()
		if err != nil {
			return nil, 0, err
		}
		widths[i] = fb
		total += fb
		t.Cols = append(t.Cols, c)
	}
	if total != rowBytes {
		return nil, 0, fmt.Errorf("row width mismatch: columns total %d bytes, NAXIS1=%d", total, rowBytes)
	}
	row := make([]byte, rowBytes)
	for rr := 0; rr < nrows; rr++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, 0, err
		}
		off := 0
		for i := range t.Cols {
			c := &t.Cols[i]
			switch c.Format {
			case "D":
				c.Floats[rr] = math.Float64frombits(binary.BigEndian.Uint64(row[off:]))
			case "E":
				c.Floats32[rr] = math.Float32frombits(binary.BigEndian.Uint32(row[off:]))
			case "J":
				c.Ints[rr] = int32(binary.BigEndian.Uint32(row[off:]))
			default:
				c.Strings[rr] = strings.TrimRight(string(row[off:off+widths[i]]), " \x00")
			}
			off += widths[i]
		}
	}
	return t, nrows * rowBytes, nil
}

func skipPad(r *bufio.Reader, dataLen int) error {
	n := padLen(dataLen)
	if n == 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, int64(n))
	if err == io.EOF {
		return nil
	}
	return err
}
