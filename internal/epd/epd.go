// Package epd drives the 7.3" Spectra 6 e-paper panel over SPI.
package epd

import "context"

// Panel is the display boundary the lifecycle machine talks to. A refresh
// takes on the order of 12 seconds; Draw blocks until the panel reports
// idle or the context is cancelled.
type Panel interface {
	Init() error
	// Draw transfers a packed 4bpp framebuffer and triggers a refresh.
	Draw(ctx context.Context, frame []byte) error
	// Sleep puts the panel into deep sleep; it retains the image at zero
	// power until the next Init.
	Sleep() error
}

// NopPanel discards frames, for development machines without the hardware.
type NopPanel struct {
	// Frames counts Draw calls; tests read it.
	Frames int
	// Last holds the most recently drawn framebuffer.
	Last []byte
}

func (n *NopPanel) Init() error { return nil }

func (n *NopPanel) Draw(_ context.Context, frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	n.Last = cp
	n.Frames++
	return nil
}

func (n *NopPanel) Sleep() error { return nil }
