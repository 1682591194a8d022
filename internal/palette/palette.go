// Package palette holds the fixed 6-color Spectra 6 palette and the
// perceptual quantizer used to map continuous-tone pixels onto it.
//
// Color matching runs in OKLab rather than raw RGB: on a palette this
// sparse, RGB nearest-color picks perceptually wrong neighbors (mid-grey
// binarizes toward saturated primaries) and bands badly.
package palette

import (
	"fmt"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Index is a palette index in 0..5.
type Index uint8

const (
	Black Index = iota
	White
	Red
	Yellow
	Blue
	Green
)

// Size is the number of palette entries.
const Size = 6

var names = [Size]string{"black", "white", "red", "yellow", "blue", "green"}

func (i Index) String() string {
	if int(i) < Size {
		return names[i]
	}
	return fmt.Sprintf("index(%d)", uint8(i))
}

// Colors are measured e-paper display colors, not nominal primaries; the
// panel's red is dark brick, the white is warm grey.
var Colors = [Size]color.RGBA{
	{2, 2, 2, 255},       // Black
	{232, 232, 232, 255}, // White
	{135, 19, 0, 255},    // Red
	{205, 202, 0, 255},   // Yellow
	{5, 64, 158, 255},    // Blue
	{39, 102, 60, 255},   // Green
}

// RGBBytes returns the palette as packed RGB triplets, the form embedded in
// the indexed image header.
func RGBBytes() []byte {
	out := make([]byte, 0, Size*3)
	for _, c := range Colors {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// Lab is a color in OKLab space.
type Lab struct {
	L, A, B float64
}

// FromRGB converts an sRGB byte triplet to OKLab. sRGB linearization goes
// through go-colorful; the LMS matrices follow Ottosson's reference.
func FromRGB(r, g, b uint8) Lab {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	lr, lg, lb := c.LinearRgb()
	return fromLinear(lr, lg, lb)
}

func fromLinear(r, g, b float64) Lab {
	l := 0.4122214708*r + 0.5363325363*g + 0.0514459929*b
	m := 0.2119034982*r + 0.6806995451*g + 0.1073969566*b
	s := 0.0883024619*r + 0.2817188376*g + 0.6299787005*b

	l = math.Cbrt(l)
	m = math.Cbrt(m)
	s = math.Cbrt(s)

	return Lab{
		L: 0.2104542553*l + 0.7936177850*m - 0.0040720468*s,
		A: 1.9779984951*l - 2.4285922050*m + 0.4505937099*s,
		B: 0.0259040371*l + 0.7827717662*m - 0.8086757660*s,
	}
}

// RGB converts back to an sRGB byte triplet, clamping out-of-gamut values.
func (c Lab) RGB() (uint8, uint8, uint8) {
	l := c.L + 0.3963377774*c.A + 0.2158037573*c.B
	m := c.L - 0.1055613458*c.A - 0.0638541728*c.B
	s := c.L - 0.0894841775*c.A - 1.2914855480*c.B

	l, m, s = l*l*l, m*m*m, s*s*s

	lr := 4.0767416621*l - 3.3077115913*m + 0.2309699292*s
	lg := -1.2684380046*l + 2.6097574011*m - 0.3413193965*s
	lb := -0.0041960863*l - 0.7034186147*m + 1.7076147010*s

	cc := colorful.LinearRgb(clamp01(lr), clamp01(lg), clamp01(lb)).Clamped()
	r, g, b := cc.RGB255()
	return r, g, b
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

// DistanceSq is the squared OKLab distance.
func (c Lab) DistanceSq(o Lab) float64 {
	dl := c.L - o.L
	da := c.A - o.A
	db := c.B - o.B
	return dl*dl + da*da + db*db
}

// Matcher precomputes OKLab values for the palette so per-pixel nearest
// lookups stay cheap.
type Matcher struct {
	lab [Size]Lab
}

func NewMatcher() *Matcher {
	m := &Matcher{}
	for i, c := range Colors {
		m.lab[i] = FromRGB(c.R, c.G, c.B)
	}
	return m
}

// Nearest returns the palette index perceptually closest to c. Ties break
// toward the lower index, so output is fully deterministic.
func (m *Matcher) Nearest(c Lab) Index {
	best := 0
	bestDist := math.MaxFloat64
	for i, p := range m.lab {
		if d := c.DistanceSq(p); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return Index(best)
}

// Lab returns the precomputed OKLab value for a palette index.
func (m *Matcher) Lab(i Index) Lab { return m.lab[i] }
