package imgcodec

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/sixcolor/photoframe/internal/palette"
)

func sampleIndices(w, h int) []uint8 {
	out := make([]uint8, w*h)
	for i := range out {
		out[i] = uint8(i % PaletteEntries)
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const w, h = 40, 30
	indices := sampleIndices(w, h)
	pal := palette.RGBBytes()

	data, err := Encode(indices, w, h, pal)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	hdr, got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if hdr.Width != w || hdr.Height != h {
		t.Fatalf("dimensions %dx%d, want %dx%d", hdr.Width, hdr.Height, w, h)
	}
	if !bytes.Equal(hdr.Palette[:], pal) {
		t.Errorf("palette not preserved")
	}
	if !bytes.Equal(got, indices) {
		t.Errorf("pixel data not preserved")
	}
}

func TestRowStreaming(t *testing.T) {
	const w, h = 17, 5
	indices := sampleIndices(w, h)
	data, err := Encode(indices, w, h, palette.RGBBytes())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	rr, err := NewRowReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewRowReader: %v", err)
	}
	defer rr.Close()

	row := make([]byte, MaxRowWidth)
	for y := 0; y < h; y++ {
		if err := rr.ReadRow(row); err != nil {
			t.Fatalf("ReadRow(%d): %v", y, err)
		}
		if !bytes.Equal(row[:w], indices[y*w:(y+1)*w]) {
			t.Fatalf("row %d mismatch", y)
		}
	}
	if err := rr.ReadRow(row); err != io.EOF {
		t.Fatalf("after last row got %v, want io.EOF", err)
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	pal := palette.RGBBytes()

	if _, err := Encode(make([]uint8, 10), 5, 3, pal); err == nil {
		t.Error("length mismatch accepted")
	}
	if _, err := Encode([]uint8{6, 0}, 2, 1, pal); err == nil {
		t.Error("out-of-range index accepted")
	}
	if _, err := Encode(make([]uint8, 801), 801, 1, pal); err == nil {
		t.Error("over-wide image accepted")
	}
	if _, err := Encode([]uint8{0}, 1, 1, pal[:6]); err == nil {
		t.Error("short palette accepted")
	}
}

func TestBadMagic(t *testing.T) {
	data, _ := Encode([]uint8{0, 1}, 2, 1, palette.RGBBytes())
	data[0] = 'X'
	if _, err := NewRowReader(bytes.NewReader(data)); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestTruncatedStream(t *testing.T) {
	data, _ := Encode(sampleIndices(50, 50), 50, 50, palette.RGBBytes())
	_, _, err := Decode(data[:HeaderSize+4])
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("got %v, want ErrDecode", err)
	}
}

func TestValidateHeader(t *testing.T) {
	data, _ := Encode([]uint8{0, 1, 2, 3}, 2, 2, palette.RGBBytes())
	if err := ValidateHeader(data); err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}
	if err := ValidateHeader(data[:10]); err == nil {
		t.Error("short data accepted")
	}
	bad := append([]byte(nil), data...)
	bad[8] = 7
	if err := ValidateHeader(bad); err == nil {
		t.Error("bad palette count accepted")
	}
}
