package device

import (
	"bytes"
	"fmt"

	"github.com/sixcolor/photoframe/internal/framebuf"
	"github.com/sixcolor/photoframe/internal/imgcodec"
	"github.com/sixcolor/photoframe/internal/widget"
)

// blit streams one indexed image into the framebuffer. Horizontal images
// land row by row at xOffset; vertical images arrive as 480x800 and are
// rotated a quarter turn counter-clockwise into the 800x480 panel. Decoding
// uses a single reusable row buffer.
func blit(fb *framebuf.Framebuffer, data []byte, xOffset int, o widget.Orientation) error {
	rr, err := imgcodec.NewRowReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer rr.Close()

	hdr := rr.Header()
	row := make([]byte, hdr.Width)
	for y := 0; y < hdr.Height; y++ {
		if err := rr.ReadRow(row); err != nil {
			return fmt.Errorf("decoding row %d: %w", y, err)
		}
		if o == widget.Vertical {
			// Rotate CCW: (x, y) -> (y, width-1-x).
			for x := 0; x < hdr.Width; x++ {
				fb.SetPixelIndexed(y, hdr.Width-1-x, row[x])
			}
		} else {
			fb.WriteRow(xOffset, y, row)
		}
	}
	return nil
}

// slotCount is how many items share one screen: two half-width slots in
// horizontal mode, one fullscreen in vertical.
func slotCount(o widget.Orientation) int {
	if o == widget.Vertical {
		return 1
	}
	return 2
}

// composeFrame builds the full panel frame starting at item index. Slots
// whose image is unavailable stay white. A non-negative battery percentage
// draws the indicator in the top-right corner, rotated along with the
// content in vertical mode.
func composeFrame(fb *framebuf.Framebuffer, images [][]byte, o widget.Orientation, battery int) {
	fb.Clear(framebuf.EpdWhite)

	for slot, data := range images {
		xOffset := 0
		if o == widget.Horizontal && slot == 1 {
			xOffset = framebuf.Width / 2
		}
		if data == nil {
			continue
		}
		if err := blit(fb, data, xOffset, o); err != nil {
			// Leave the slot white; corrupt bytes are the caller's
			// cache-miss signal, not a display fault.
			if xOffset == 0 {
				fb.FillLeftHalf(framebuf.EpdWhite)
			} else {
				fb.FillRightHalf(framebuf.EpdWhite)
			}
		}
	}

	if battery >= 0 {
		if o == widget.Vertical {
			// Top-right of the rotated content is the panel's top-left.
			fb.DrawBattery(8, 8, battery, true)
		} else {
			fb.DrawBattery(framebuf.Width-framebuf.BatteryWidthH-14, 8, battery, false)
		}
	}
}
