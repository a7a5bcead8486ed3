package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// Snapshot files are a fixed little-endian layout: a magic tag, a format
// version, the grid dimensions and box width, then the three field arrays
// in order (density, temperature, metallicity).
const (
	snapshotMagic   = uint32(0x584f4253) // "SBOX"
	snapshotVersion = uint32(1)
)

type snapshotHeader struct {
	Magic   uint32
	Version uint32
	NX      int32
	NY      int32
	NZ      int32
	_       int32 // alignment padding
	Width   float64
}

// Save writes the snapshot to the named file.
func (g *Grid) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	hdr := snapshotHeader{
		Magic:   snapshotMagic,
		Version: snapshotVersion,
		NX:      int32(g.NX),
		NY:      int32(g.NY),
		NZ:      int32(g.NZ),
		Width:   g.Width,
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	for _, field := range [][]float64{g.Density, g.Temperature, g.Metallicity} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("writing snapshot data: %w", err)
		}
	}
	return w.Flush()
}

// Load reads a snapshot written by Save.
func Load(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var hdr snapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	if hdr.Magic != snapshotMagic {
		return nil, fmt.Errorf("%s is not a snapshot file (bad magic 0x%08x)", path, hdr.Magic)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}
	g, err := NewGrid(int(hdr.NX), int(hdr.NY), int(hdr.NZ), hdr.Width)
	if err != nil {
		return nil, fmt.Errorf("bad snapshot header: %w", err)
	}
	for _, field := range [][]float64{g.Density, g.Temperature, g.Metallicity} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("reading snapshot data: %w", err)
		}
	}
	return g, nil
}
