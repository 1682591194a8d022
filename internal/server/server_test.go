package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixcolor/photoframe/internal/source"
	"github.com/sixcolor/photoframe/internal/widget"
)

// stubSource serves a fixed list and canned image bytes.
type stubSource struct {
	items    []widget.Item
	itemsErr error
	image    []byte
	imageErr error

	lastPath   string
	lastOrient widget.Orientation
}

func (s *stubSource) Name() string { return "concerts" }

func (s *stubSource) ListPolicy() widget.CachePolicy { return widget.TTL(86400) }

func (s *stubSource) FetchItems(ctx context.Context) ([]widget.Item, error) {
	return s.items, s.itemsErr
}

func (s *stubSource) FetchImage(ctx context.Context, path string, o widget.Orientation) ([]byte, error) {
	s.lastPath = path
	s.lastOrient = o
	return s.image, s.imageErr
}

func newTestServer(src *stubSource) *Server {
	return New(source.NewRegistry(src), zerolog.Nop())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubSource{})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestWidgetList(t *testing.T) {
	stub := &stubSource{items: []widget.Item{
		{Width: widget.WidthHalf, CachePolicy: widget.Permanent(), CacheKey: 101, Path: "aa/17-07-2025"},
	}}
	srv := newTestServer(stub)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/widget/concerts", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "86400", resp.Header.Get("X-Cache-Policy"))

	var items []widget.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, uint32(101), items[0].CacheKey)
}

func TestWidgetListUnknownWidget(t *testing.T) {
	srv := newTestServer(&stubSource{})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/widget/weather", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWidgetListUpstreamFailure(t *testing.T) {
	srv := newTestServer(&stubSource{itemsErr: source.ErrUpstream})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/widget/concerts", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestWidgetImage(t *testing.T) {
	stub := &stubSource{image: []byte{0xDE, 0xAD}}
	srv := newTestServer(stub)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/widget/concerts/vert/aa/17-07-2025", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", resp.Header.Get("Cache-Control"))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte{0xDE, 0xAD}, body)
	assert.Equal(t, "aa/17-07-2025", stub.lastPath)
	assert.Equal(t, widget.Vertical, stub.lastOrient)
}

func TestWidgetImageBadOrientation(t *testing.T) {
	srv := newTestServer(&stubSource{image: []byte{1}})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/widget/concerts/diagonal/aa/x", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWidgetImageNotFound(t *testing.T) {
	srv := newTestServer(&stubSource{imageErr: source.ErrNotFound})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/widget/concerts/horiz/zz/x", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWidgetImageBadPath(t *testing.T) {
	srv := newTestServer(&stubSource{imageErr: source.ErrBadPath})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/widget/concerts/horiz/bad", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDebugPalette(t *testing.T) {
	srv := newTestServer(&stubSource{})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/debug/palette", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<svg")
}
