package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixcolor/photoframe/internal/imgcodec"
	"github.com/sixcolor/photoframe/internal/palette"
)

func sourcePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 120,
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New()
	require.NoError(t, err)
	return p
}

func TestRenderProducesIndexedImage(t *testing.T) {
	p := newPipeline(t)
	src := sourcePNG(t, 300, 200)

	out, err := p.Render(src, 400, 480, nil)
	require.NoError(t, err)

	hdr, pixels, err := imgcodec.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 400, hdr.Width)
	assert.Equal(t, 480, hdr.Height)
	assert.Len(t, pixels, 400*480)
	for i, v := range pixels {
		require.Less(t, v, uint8(palette.Size), "pixel %d out of palette range", i)
	}
}

func TestRenderDeterministic(t *testing.T) {
	p := newPipeline(t)
	src := sourcePNG(t, 640, 400)
	overlay := &Overlay{Title: "The Midnight", Date: "July 17th, 2025", Venue: "Roundhouse, London"}

	a, err := p.Render(src, 400, 480, overlay)
	require.NoError(t, err)
	b, err := p.Render(src, 400, 480, overlay)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same input must produce identical bytes")
}

func TestRenderWithOverlay(t *testing.T) {
	p := newPipeline(t)
	src := sourcePNG(t, 500, 500)

	out, err := p.Render(src, 400, 480, &Overlay{
		Title: "Band Name",
		Date:  "March 3rd, 2026",
		Venue: "Somewhere",
	})
	require.NoError(t, err)

	hdr, _, err := imgcodec.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 400, hdr.Width)
	assert.Equal(t, 480, hdr.Height)
}

func TestRenderOverlayNeedsRoom(t *testing.T) {
	p := newPipeline(t)
	src := sourcePNG(t, 100, 100)

	_, err := p.Render(src, 400, TextAreaHeight, &Overlay{Title: "x"})
	require.ErrorIs(t, err, ErrRender)
}

func TestRenderRejectsGarbage(t *testing.T) {
	p := newPipeline(t)
	_, err := p.Render([]byte("definitely not an image"), 400, 480, nil)
	require.ErrorIs(t, err, ErrRender)
}

func TestRenderFullWidth(t *testing.T) {
	p := newPipeline(t)
	src := sourcePNG(t, 1024, 600)

	out, err := p.Render(src, 800, 480, nil)
	require.NoError(t, err)
	hdr, _, err := imgcodec.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 800, hdr.Width)
	assert.Equal(t, 480, hdr.Height)
}

func TestPlaceholder(t *testing.T) {
	p := newPipeline(t)

	out, err := p.Placeholder(400, 480)
	require.NoError(t, err)

	hdr, pixels, err := imgcodec.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 400, hdr.Width)
	assert.Equal(t, 480, hdr.Height)
	assert.Len(t, pixels, 400*480)
}

func TestDominantColorLightness(t *testing.T) {
	dark := image.NewRGBA(image.Rect(0, 0, 60, 60))
	light := image.NewRGBA(image.Rect(0, 0, 60, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			dark.SetRGBA(x, y, color.RGBA{20, 20, 40, 255})
			light.SetRGBA(x, y, color.RGBA{240, 240, 230, 255})
		}
	}

	_, isLight := DominantColor(dark)
	assert.False(t, isLight, "near-black image classified light")

	_, isLight = DominantColor(light)
	assert.True(t, isLight, "near-white image classified dark")
}

func TestDominantColorDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 3), uint8(y * 3), 90, 255})
		}
	}
	a, aLight := DominantColor(img)
	b, bLight := DominantColor(img)
	assert.Equal(t, a, b)
	assert.Equal(t, aLight, bLight)
}

func TestTruncateVenue(t *testing.T) {
	long := "An Extremely Long Venue Name That Goes On And On Forever"
	got := truncate(long, venueMaxChars)
	assert.LessOrEqual(t, len(got), venueMaxChars)
	assert.True(t, len(got) >= 4 && got[len(got)-3:] == "...")

	short := "Roundhouse"
	assert.Equal(t, short, truncate(short, venueMaxChars))
}
