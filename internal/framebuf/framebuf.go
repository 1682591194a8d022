// Package framebuf converts decoded palette-index rows into the panel's
// packed 4-bit framebuffer layout: two pixels per byte, high nibble holds
// the even (left) pixel. An odd trailing pixel zero-fills the low nibble;
// the controller never reads that nibble back.
package framebuf

// Panel dimensions for the 7.3" Spectra 6.
const (
	Width       = 800
	Height      = 480
	BytesPerRow = Width / 2
	BufferSize  = BytesPerRow * Height
)

// EPD 4-bit color codes. These are controller codes, not palette indices:
// the panel swaps the yellow/red positions relative to the image palette.
const (
	EpdBlack  byte = 0x0
	EpdWhite  byte = 0x1
	EpdYellow byte = 0x2
	EpdRed    byte = 0x3
	EpdBlue   byte = 0x5
	EpdGreen  byte = 0x6
)

// remap translates image palette indices (black, white, red, yellow, blue,
// green) to EPD color codes.
var remap = [6]byte{EpdBlack, EpdWhite, EpdRed, EpdYellow, EpdBlue, EpdGreen}

// Remap converts a single palette index to its EPD color code. Out-of-range
// indices map to white so a bad pixel degrades invisibly.
func Remap(paletteIdx uint8) byte {
	if int(paletteIdx) < len(remap) {
		return remap[paletteIdx]
	}
	return EpdWhite
}

// PackRow packs raw pixel values into dst, two per byte, high nibble first,
// zero-filling the low nibble of an odd tail. Values are packed as given;
// callers needing EPD color codes remap first. dst must hold
// (len(pixels)+1)/2 bytes; a short dst is a caller contract violation.
// Returns the number of bytes written.
func PackRow(dst []byte, pixels []byte) int {
	n := 0
	for i := 0; i+1 < len(pixels); i += 2 {
		dst[n] = pixels[i]<<4 | pixels[i+1]&0x0F
		n++
	}
	if len(pixels)%2 == 1 {
		dst[n] = pixels[len(pixels)-1] << 4
		n++
	}
	return n
}

// Framebuffer is the full-panel packed buffer.
type Framebuffer struct {
	buf [BufferSize]byte
}

// New returns a framebuffer cleared to white.
func New() *Framebuffer {
	fb := &Framebuffer{}
	fb.Clear(EpdWhite)
	return fb
}

// Clear fills the panel with one EPD color.
func (f *Framebuffer) Clear(epd byte) {
	b := epd<<4 | epd
	for i := range f.buf {
		f.buf[i] = b
	}
}

// Bytes returns the raw packed buffer for transfer to the panel.
func (f *Framebuffer) Bytes() []byte { return f.buf[:] }

// WriteRow remaps one row of palette indices to EPD codes and packs it at
// the given horizontal pixel offset, which must be even (nibble-aligned).
// Supports placing a half-width image into either half of the panel.
func (f *Framebuffer) WriteRow(xOffset, y int, pixels []uint8) {
	if y < 0 || y >= Height || xOffset < 0 || xOffset+len(pixels) > Width {
		return
	}
	packed := make([]byte, (len(pixels)+1)/2)
	tmp := make([]byte, len(pixels))
	for i, p := range pixels {
		tmp[i] = Remap(p)
	}
	n := PackRow(packed, tmp)
	copy(f.buf[y*BytesPerRow+xOffset/2:], packed[:n])
}

// SetPixel writes one EPD color code at (x, y).
func (f *Framebuffer) SetPixel(x, y int, epd byte) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	idx := y*BytesPerRow + x/2
	if x%2 == 0 {
		f.buf[idx] = f.buf[idx]&0x0F | epd<<4
	} else {
		f.buf[idx] = f.buf[idx]&0xF0 | epd&0x0F
	}
}

// SetPixelIndexed writes one palette index at (x, y), remapping to the EPD
// color code. Used by the vertical-orientation rotation path.
func (f *Framebuffer) SetPixelIndexed(x, y int, paletteIdx uint8) {
	f.SetPixel(x, y, Remap(paletteIdx))
}

// FillRect fills a rectangle with an EPD color, clipped to the panel.
func (f *Framebuffer) FillRect(x, y, w, h int, epd byte) {
	for row := y; row < y+h && row < Height; row++ {
		for col := x; col < x+w && col < Width; col++ {
			f.SetPixel(col, row, epd)
		}
	}
}

// FillLeftHalf fills the left 400x480 region.
func (f *Framebuffer) FillLeftHalf(epd byte) { f.FillRect(0, 0, Width/2, Height, epd) }

// FillRightHalf fills the right 400x480 region.
func (f *Framebuffer) FillRightHalf(epd byte) { f.FillRect(Width/2, 0, Width/2, Height, epd) }
