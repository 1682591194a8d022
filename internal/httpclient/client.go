// Package httpclient is the device's view of the widget service.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sixcolor/photoframe/internal/widget"
)

const defaultTimeout = 30 * time.Second

// ErrUpstream covers non-2xx responses and transport failures; the caller
// treats both like a network timeout.
var ErrUpstream = errors.New("httpclient: upstream error")

// Client fetches widget lists and images from the service.
type Client struct {
	base   string
	widget string
	http   *http.Client
	log    zerolog.Logger
}

// New builds a client for one named widget on the service at baseURL.
func New(baseURL, widgetName string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		widget: widgetName,
		http:   &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "httpclient").Logger(),
	}
}

// FetchList retrieves the widget's current item list. The list-level policy
// arrives in the X-Cache-Policy header; a missing or malformed header
// degrades to no-cache so the device never trusts a list longer than it
// should.
func (c *Client) FetchList(ctx context.Context) (*widget.List, error) {
	u := c.base + "/api/widget/" + c.widget
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list status %d", ErrUpstream, resp.StatusCode)
	}

	var items []widget.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decoding list: %v", ErrUpstream, err)
	}

	policy := widget.NoCache()
	if header := resp.Header.Get("X-Cache-Policy"); header != "" {
		parsed, perr := widget.ParseCachePolicy(header)
		if perr != nil {
			c.log.Warn().Str("header", header).Msg("bad cache policy header")
		} else {
			policy = parsed
		}
	}

	return &widget.List{
		Name:      c.widget,
		Items:     items,
		Policy:    policy,
		FetchedAt: time.Now(),
	}, nil
}

// FetchImage retrieves the rendered indexed-image bytes for one item.
func (c *Client) FetchImage(ctx context.Context, item widget.Item, o widget.Orientation) ([]byte, error) {
	u := c.base + "/api/widget/" + c.widget + "/" + o.String() + "/" + item.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image status %d for key %d", ErrUpstream, resp.StatusCode, item.CacheKey)
	}
	return io.ReadAll(resp.Body)
}
