package server

import (
	"bytes"
	"fmt"

	svg "github.com/ajstarks/svgo"
	"github.com/gofiber/fiber/v2"

	"github.com/sixcolor/photoframe/internal/palette"
)

// debugPalette renders the panel palette as SVG swatches, handy for
// eyeballing the measured colors in a browser.
func (s *Server) debugPalette(c *fiber.Ctx) error {
	const (
		swatch = 120
		label  = 30
	)

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(swatch*palette.Size, swatch+label)
	for i, col := range palette.Colors {
		x := i * swatch
		fill := fmt.Sprintf("fill:rgb(%d,%d,%d)", col.R, col.G, col.B)
		canvas.Rect(x, 0, swatch, swatch, fill)
		canvas.Text(x+swatch/2, swatch+20, palette.Index(i).String(),
			"text-anchor:middle;font-size:14px;font-family:sans-serif")
	}
	canvas.End()

	c.Set(fiber.HeaderContentType, "image/svg+xml")
	return c.Send(buf.Bytes())
}
