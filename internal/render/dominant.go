package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/sixcolor/photoframe/internal/palette"
)

const (
	domSample    = 50
	domSharpness = 4.0
	// Oklab lightness above which black text reads better than white.
	domLightThreshold = 0.6
)

type weightedColor struct {
	lab    palette.Lab
	weight float64
}

// DominantColor estimates the image's edge-region dominant color, used as
// the background fill behind overlay text. The middle 66% is excluded
// (usually the subject), rows are weighted toward the bottom where the
// gradient blends, and the weighted mean runs in OKLab. The bool reports
// whether the result is light enough to want black text on it.
func DominantColor(img *image.RGBA) (color.RGBA, bool) {
	small := image.NewRGBA(image.Rect(0, 0, domSample, domSample))
	xdraw.BiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	margin := domSample / 6

	// First-seen order keeps the float accumulation deterministic; a map
	// alone would sum in random order.
	index := make(map[uint32]int)
	var colors []weightedColor

	for y := 0; y < domSample; y++ {
		yWeight := float64(y+1) / domSample
		for x := 0; x < domSample; x++ {
			if x >= margin && x < domSample-margin && y >= margin && y < domSample-margin {
				continue
			}
			px := small.RGBAAt(x, y)
			key := uint32(px.R)<<16 | uint32(px.G)<<8 | uint32(px.B)
			if i, ok := index[key]; ok {
				colors[i].weight += yWeight
				continue
			}
			index[key] = len(colors)
			colors = append(colors, weightedColor{
				lab:    palette.FromRGB(px.R, px.G, px.B),
				weight: yWeight,
			})
		}
	}

	var sumL, sumA, sumB, total float64
	for _, wc := range colors {
		w := math.Pow(wc.weight, domSharpness)
		sumL += wc.lab.L * w
		sumA += wc.lab.A * w
		sumB += wc.lab.B * w
		total += w
	}
	if total == 0 {
		return color.RGBA{255, 255, 255, 255}, true
	}

	avg := palette.Lab{L: sumL / total, A: sumA / total, B: sumB / total}
	r, g, b := avg.RGB()
	return color.RGBA{r, g, b, 255}, avg.L > domLightThreshold
}
