// Package imgcodec implements the indexed image wire format exchanged
// between the rendering service and the device.
//
// Layout:
//
//	offset  size  field
//	0       4     magic "IXB1"
//	4       2     width, big-endian
//	6       2     height, big-endian
//	8       1     palette entry count (always 6)
//	9       18    palette, RGB triplets
//	27      ...   deflate stream: one palette index byte per pixel, row-major
//
// The payload is plain deflate (RFC 1951) so the device can decode with a
// single small row buffer: the decoder never materializes the full image.
package imgcodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

var magic = [4]byte{'I', 'X', 'B', '1'}

const (
	// PaletteEntries is fixed by the 6-color panel.
	PaletteEntries = 6
	// HeaderSize is the byte length of the uncompressed header.
	HeaderSize = 4 + 2 + 2 + 1 + PaletteEntries*3
	// MaxRowWidth bounds the decoder's row buffer requirement.
	MaxRowWidth = 800
	// MaxHeight bounds the tallest supported image (vertical orientation).
	MaxHeight = 800
)

var (
	// ErrBadMagic means the stream is not an indexed image.
	ErrBadMagic = errors.New("imgcodec: bad magic")
	// ErrDecode means the stream is malformed past the header.
	ErrDecode = errors.New("imgcodec: malformed image data")
)

// Header describes a decoded image stream.
type Header struct {
	Width   int
	Height  int
	Palette [PaletteEntries * 3]byte
}

// Encode serializes per-pixel palette indices into the wire format.
// indices must hold width*height bytes, each < PaletteEntries; palette must
// hold 18 RGB bytes.
func Encode(indices []uint8, width, height int, palette []byte) ([]byte, error) {
	if width <= 0 || width > MaxRowWidth || height <= 0 || height > MaxHeight {
		return nil, fmt.Errorf("imgcodec: unsupported dimensions %dx%d", width, height)
	}
	if len(indices) != width*height {
		return nil, fmt.Errorf("imgcodec: have %d indices, want %d", len(indices), width*height)
	}
	if len(palette) != PaletteEntries*3 {
		return nil, fmt.Errorf("imgcodec: palette must be %d bytes", PaletteEntries*3)
	}
	for i, v := range indices {
		if v >= PaletteEntries {
			return nil, fmt.Errorf("imgcodec: index %d out of range at pixel %d", v, i)
		}
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(indices)/4)
	buf.Write(magic[:])

	var dims [4]byte
	binary.BigEndian.PutUint16(dims[0:2], uint16(width))
	binary.BigEndian.PutUint16(dims[2:4], uint16(height))
	buf.Write(dims[:])
	buf.WriteByte(PaletteEntries)
	buf.Write(palette)

	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(indices); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RowReader decodes an indexed image one row at a time. The only decoder
// allocation beyond the flate window is whatever row buffer the caller
// supplies (≤ MaxRowWidth bytes).
type RowReader struct {
	hdr  Header
	zr   io.ReadCloser
	rows int
}

// NewRowReader parses the header and prepares the deflate stream.
func NewRowReader(r io.Reader) (*RowReader, error) {
	var head [HeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrBadMagic)
	}
	if !bytes.Equal(head[0:4], magic[:]) {
		return nil, ErrBadMagic
	}
	hdr := Header{
		Width:  int(binary.BigEndian.Uint16(head[4:6])),
		Height: int(binary.BigEndian.Uint16(head[6:8])),
	}
	if head[8] != PaletteEntries {
		return nil, fmt.Errorf("%w: palette count %d", ErrDecode, head[8])
	}
	if hdr.Width <= 0 || hdr.Width > MaxRowWidth || hdr.Height <= 0 || hdr.Height > MaxHeight {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrDecode, hdr.Width, hdr.Height)
	}
	copy(hdr.Palette[:], head[9:HeaderSize])

	return &RowReader{hdr: hdr, zr: flate.NewReader(r)}, nil
}

// Header returns the parsed image header.
func (rr *RowReader) Header() Header { return rr.hdr }

// ReadRow fills buf with the next row of palette indices. buf must hold at
// least Width bytes; only buf[:Width] is written. Returns io.EOF after the
// final row has been read.
func (rr *RowReader) ReadRow(buf []byte) error {
	if rr.rows >= rr.hdr.Height {
		return io.EOF
	}
	if len(buf) < rr.hdr.Width {
		return fmt.Errorf("imgcodec: row buffer %d too small for width %d", len(buf), rr.hdr.Width)
	}
	row := buf[:rr.hdr.Width]
	if _, err := io.ReadFull(rr.zr, row); err != nil {
		return fmt.Errorf("%w: row %d: %v", ErrDecode, rr.rows, err)
	}
	for i, v := range row {
		if v >= PaletteEntries {
			return fmt.Errorf("%w: index %d at row %d col %d", ErrDecode, v, rr.rows, i)
		}
	}
	rr.rows++
	return nil
}

// Close releases the underlying deflate reader.
func (rr *RowReader) Close() error { return rr.zr.Close() }

// Decode is the whole-image convenience used by the service and tests. The
// device path goes through RowReader instead.
func Decode(data []byte) (Header, []uint8, error) {
	rr, err := NewRowReader(bytes.NewReader(data))
	if err != nil {
		return Header{}, nil, err
	}
	defer rr.Close()

	hdr := rr.Header()
	out := make([]uint8, hdr.Width*hdr.Height)
	row := make([]byte, hdr.Width)
	for y := 0; y < hdr.Height; y++ {
		if err := rr.ReadRow(row); err != nil {
			return Header{}, nil, err
		}
		copy(out[y*hdr.Width:], row)
	}
	return hdr, out, nil
}

// ValidateHeader cheaply checks that data begins with a plausible indexed
// image header. Used by the device cache to detect corrupt entries without
// inflating them.
func ValidateHeader(data []byte) error {
	if len(data) <= HeaderSize {
		return ErrBadMagic
	}
	rr, err := NewRowReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return rr.Close()
}
