package render

import (
	"image"
	"image/color"

	"github.com/sixcolor/photoframe/internal/palette"
)

// Tone adjustment constants, tuned by eye against the panel's measured
// palette. Exposure lifts the slightly dim source scans, the chroma boost
// compensates for the desaturated panel primaries, and the S-curve
// compresses highlights and shadows so the ditherer has six usable levels
// to work with.
const (
	toneExposure   = 1.04
	toneChroma     = 1.15
	toneCurveBlend = 0.35
)

// applyTone adjusts the image in place, working per pixel in OKLab.
func applyTone(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.RGBAAt(x, y)
			lab := palette.FromRGB(px.R, px.G, px.B)

			l := clamp01(lab.L * toneExposure)
			s := l * l * (3 - 2*l)
			lab.L = l + (s-l)*toneCurveBlend
			lab.A *= toneChroma
			lab.B *= toneChroma

			r, g, bl := lab.RGB()
			img.SetRGBA(x, y, color.RGBA{r, g, bl, px.A})
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
