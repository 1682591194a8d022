package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/sixcolor/photoframe/internal/imgcodec"
	"github.com/sixcolor/photoframe/internal/palette"
)

//go:embed assets/placeholder.svg
var placeholderSVG []byte

// Placeholder rasterizes the built-in frame graphic at the requested
// dimensions and encodes it as an indexed image. Served when an item's
// source image cannot be fetched or decoded, so the device still gets a
// displayable response.
func (p *Pipeline) Placeholder(width, height int) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(placeholderSVG))
	if err != nil {
		return nil, fmt.Errorf("%w: placeholder svg: %v", ErrRender, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	white := palette.Colors[palette.White]
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{white.R, white.G, white.B, 255}), image.Point{}, draw.Src)

	icon.SetTarget(0, 0, float64(width), float64(height))
	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)

	indices := palette.Dither(canvas, p.matcher)
	out, err := imgcodec.Encode(indices, width, height, palette.RGBBytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return out, nil
}
