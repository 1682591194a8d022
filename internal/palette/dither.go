package palette

import "image"

// Floyd–Steinberg error diffusion weights, in sixteenths:
//
//	        *  7
//	     3  5  1
//
// Error diffuses only to in-bounds neighbors; at row and column boundaries
// the out-of-bounds share is discarded. Dropping it keeps edge pixels from
// accumulating phantom error and keeps the pass deterministic.

// Dither quantizes an RGBA image to per-pixel palette indices using
// Floyd–Steinberg error diffusion carried in OKLab space. The same input
// always produces byte-identical output.
func Dither(img *image.RGBA, m *Matcher) []uint8 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	indexed := make([]uint8, w*h)
	if w == 0 || h == 0 {
		return indexed
	}

	// Working buffer holds the whole image in OKLab so diffused error
	// survives into later rows.
	work := make([]Lab, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := img.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			work[y*w+x] = FromRGB(px.R, px.G, px.B)
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			cur := work[idx]

			pi := m.Nearest(cur)
			indexed[idx] = uint8(pi)

			target := m.Lab(pi)
			errL := cur.L - target.L
			errA := cur.A - target.A
			errB := cur.B - target.B

			if x+1 < w {
				spread(&work[idx+1], errL, errA, errB, 7.0/16)
			}
			if y+1 < h {
				if x > 0 {
					spread(&work[idx+w-1], errL, errA, errB, 3.0/16)
				}
				spread(&work[idx+w], errL, errA, errB, 5.0/16)
				if x+1 < w {
					spread(&work[idx+w+1], errL, errA, errB, 1.0/16)
				}
			}
		}
	}

	return indexed
}

func spread(dst *Lab, l, a, b, weight float64) {
	dst.L += l * weight
	dst.A += a * weight
	dst.B += b * weight
}
