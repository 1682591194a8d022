package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/sixcolor/photoframe/internal/palette"
)

const (
	titleSize = 40.0
	dateSize  = 32.0
	venueSize = 24.0
	minSize   = 14.0

	venueMaxChars = 35
	textMargin    = 16
)

// drawOverlay renders the three overlay lines centered in the background
// region below the image, black on light fills and white on dark ones so the
// dither snaps the text to a solid palette color.
func (p *Pipeline) drawOverlay(canvas *image.RGBA, ov *Overlay, textTop int, lightBg bool) {
	clr := color.Color(palette.Colors[palette.White])
	if lightBg {
		clr = palette.Colors[palette.Black]
	}
	width := canvas.Bounds().Dx()

	y := textTop + 4
	y = p.drawLine(canvas, ov.Title, p.bold, titleSize, width, y, clr) + 4
	y = p.drawLine(canvas, ov.Date, p.regular, dateSize, width, y, clr) + 4
	p.drawLine(canvas, truncate(ov.Venue, venueMaxChars), p.regular, venueSize, width, y, clr)
}

// drawLine draws one centered line at the largest size, at or below the
// preferred one, that fits the canvas width. Returns the y of the next line.
func (p *Pipeline) drawLine(canvas *image.RGBA, text string, fnt *opentype.Font, size float64, width, y int, clr color.Color) int {
	if text == "" {
		return y
	}

	face, textWidth := p.fitFace(fnt, text, size, width-2*textMargin)
	if face == nil {
		return y
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(clr),
		Face: face,
	}
	metrics := face.Metrics()
	x := (width - textWidth) / 2
	if x < textMargin {
		x = textMargin
	}
	d.Dot = fixed.P(x, y+metrics.Ascent.Round())
	d.DrawString(text)

	return y + metrics.Ascent.Round() + metrics.Descent.Round()
}

// fitFace shrinks the point size in 2pt steps until the rendered string fits
// maxWidth, bottoming out at minSize. Returns the face and measured width.
func (p *Pipeline) fitFace(fnt *opentype.Font, text string, size float64, maxWidth int) (font.Face, int) {
	for ; size >= minSize; size -= 2 {
		face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, 0
		}
		w := font.MeasureString(face, text).Round()
		if w <= maxWidth || size-2 < minSize {
			return face, w
		}
		face.Close()
	}
	return nil, 0
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars-3]) + "..."
}
