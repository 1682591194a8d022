// Package render is the service-side transcoding pipeline: source image in,
// indexed e-paper image out. The whole pipeline is pure, so identical input
// bytes, dimensions and overlay text always produce identical output bytes.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/llgcode/draw2d/draw2dimg"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	xdraw "golang.org/x/image/draw"

	"github.com/sixcolor/photoframe/internal/imgcodec"
	"github.com/sixcolor/photoframe/internal/palette"
)

// TextAreaHeight is reserved at the bottom of the canvas when an overlay is
// present.
const TextAreaHeight = 120

// gradientBand is how many rows of the image bottom blend into the
// background fill, so photo and text region never meet at a hard seam.
const gradientBand = 48

// ErrRender wraps any pipeline stage failure.
var ErrRender = errors.New("render: pipeline failed")

// Overlay is the text block drawn into the background region.
type Overlay struct {
	Title string
	Date  string
	Venue string
}

// Pipeline holds the parsed fonts and the precomputed palette matcher.
// Stateless per render call, safe for concurrent use.
type Pipeline struct {
	matcher *palette.Matcher
	bold    *opentype.Font
	regular *opentype.Font
}

func New() (*Pipeline, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	return &Pipeline{
		matcher: palette.NewMatcher(),
		bold:    bold,
		regular: regular,
	}, nil
}

// Render runs the fixed stage order: decode, cover resize, tone adjust,
// canvas composition, text overlay, dither, indexed encode.
func (p *Pipeline) Render(src []byte, width, height int, overlay *Overlay) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding source: %v", ErrRender, err)
	}

	imageH := height
	if overlay != nil {
		if height <= TextAreaHeight {
			return nil, fmt.Errorf("%w: height %d leaves no room for text", ErrRender, height)
		}
		imageH = height - TextAreaHeight
	}

	resized := resizeCover(img, width, imageH)
	applyTone(resized)
	dom, isLight := DominantColor(resized)

	canvas := compose(resized, width, height, dom)
	if overlay != nil {
		p.drawOverlay(canvas, overlay, imageH, isLight)
	}

	indices := palette.Dither(canvas, p.matcher)
	out, err := imgcodec.Encode(indices, width, height, palette.RGBBytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return out, nil
}

// resizeCover scales the source to fill the target area completely, then
// center-crops the overflow. Bilinear is plenty ahead of a 6-color dither.
func resizeCover(img image.Image, targetW, targetH int) *image.RGBA {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	}

	scaleX := float64(targetW) / float64(srcW)
	scaleY := float64(targetH) / float64(srcH)
	scale := scaleX
	if scaleY > scale {
		scale = scaleY
	}
	newW := int(float64(srcW)*scale + 0.5)
	newH := int(float64(srcH)*scale + 0.5)
	if newW < targetW {
		newW = targetW
	}
	if newH < targetH {
		newH = targetH
	}

	scaled := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, b, xdraw.Over, nil)

	cropX := (newW - targetW) / 2
	cropY := (newH - targetH) / 2
	out := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(cropX, cropY), draw.Src)
	return out
}

// compose places the image at the top of a full-height canvas whose
// remainder is a solid fill of the dominant color, with the image's last
// rows gradient-blended into that fill.
func compose(img *image.RGBA, width, height int, bg color.RGBA) *image.RGBA {
	imageH := img.Bounds().Dy()
	if imageH >= height {
		return img
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetFillColor(bg)
	gc.MoveTo(0, 0)
	gc.LineTo(float64(width), 0)
	gc.LineTo(float64(width), float64(height))
	gc.LineTo(0, float64(height))
	gc.Close()
	gc.Fill()

	draw.Draw(canvas, image.Rect(0, 0, width, imageH), img, image.Point{}, draw.Src)

	bgc := colorful.Color{R: float64(bg.R) / 255, G: float64(bg.G) / 255, B: float64(bg.B) / 255}
	band := gradientBand
	if band > imageH {
		band = imageH
	}
	for row := 0; row < band; row++ {
		y := imageH - band + row
		t := float64(row+1) / float64(band+1)
		t = t * t * (3 - 2*t)
		for x := 0; x < width; x++ {
			px := canvas.RGBAAt(x, y)
			c := colorful.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}
			blended := c.BlendLab(bgc, t).Clamped()
			r, g, b := blended.RGB255()
			canvas.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return canvas
}
