package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sixcolor/photoframe/internal/render"
	"github.com/sixcolor/photoframe/internal/widget"
)

const (
	defaultConcertsAPI = "https://server.sawthat.band/api/bands"
	concertsListTTL    = 86400
	concertsLimit      = 128
)

// band is one entry of the concert-history API response.
type band struct {
	Band     string    `json:"band"`
	Picture  string    `json:"picture"`
	Concerts []concert `json:"concerts"`
	ID       string    `json:"id"`
}

// concert dates arrive as DD-MM-YYYY.
type concert struct {
	Date     string `json:"date"`
	Location string `json:"location"`
}

// ConcertsConfig configures the concert-history source.
type ConcertsConfig struct {
	// BaseURL overrides the upstream API endpoint, mainly for tests.
	BaseURL string
	// UserID selects whose concert history to display.
	UserID string
	// Limit caps the number of most recent concerts listed.
	Limit int
}

// Concerts serves concert history as widget items: one item per attended
// show, most recent first, with period-matched album art looked up on
// Deezer and the band's own picture as fallback.
type Concerts struct {
	cfg      ConcertsConfig
	http     *http.Client
	deezer   *deezerClient
	pipeline *render.Pipeline
	log      zerolog.Logger

	bands  *TTLCache[[]band]
	images *TTLCache[[]byte]
}

func NewConcerts(cfg ConcertsConfig, client *http.Client, pipeline *render.Pipeline, log zerolog.Logger) *Concerts {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultConcertsAPI
	}
	if cfg.Limit <= 0 {
		cfg.Limit = concertsLimit
	}
	return &Concerts{
		cfg:      cfg,
		http:     client,
		deezer:   newDeezerClient(client),
		pipeline: pipeline,
		log:      log.With().Str("source", "concerts").Logger(),
		bands:    NewTTLCache[[]band](DefaultTTL),
		images:   NewTTLCache[[]byte](DefaultTTL),
	}
}

func (c *Concerts) Name() string { return "concerts" }

// ListPolicy refreshes the list daily; new concerts may be added upstream.
func (c *Concerts) ListPolicy() widget.CachePolicy { return widget.TTL(concertsListTTL) }

func (c *Concerts) FetchItems(ctx context.Context) ([]widget.Item, error) {
	bands, err := c.getBands(ctx)
	if err != nil {
		return nil, err
	}
	items := bandsToItems(bands, c.cfg.Limit)
	if len(items) == 0 {
		c.log.Warn().Msg("no concerts in upstream data")
	}
	return items, nil
}

func (c *Concerts) FetchImage(ctx context.Context, path string, o widget.Orientation) ([]byte, error) {
	bandID, date, err := parseItemPath(path)
	if err != nil {
		return nil, err
	}

	cacheKey := path + "/" + o.String()
	if img, ok := c.images.Get(cacheKey); ok {
		return img, nil
	}

	bands, err := c.getBands(ctx)
	if err != nil {
		return nil, err
	}
	var b *band
	for i := range bands {
		if bands[i].ID == bandID {
			b = &bands[i]
			break
		}
	}
	if b == nil {
		return nil, fmt.Errorf("%w: band %s", ErrNotFound, bandID)
	}

	imageURL := b.Picture
	if art, err := c.deezer.AlbumArtForConcert(ctx, b.Band, date); err != nil {
		c.log.Warn().Err(err).Str("band", b.Band).Msg("deezer lookup failed, using band picture")
	} else if art != "" {
		imageURL = art
	}

	srcBytes, err := c.fetchBytes(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	var overlay *render.Overlay
	for _, con := range b.Concerts {
		if con.Date == date {
			overlay = &render.Overlay{
				Title: b.Band,
				Date:  formatDate(con.Date),
				Venue: con.Location,
			}
			break
		}
	}

	w, h := o.Dimensions(widget.WidthHalf)
	img, err := c.pipeline.Render(srcBytes, w, h, overlay)
	if errors.Is(err, render.ErrRender) {
		c.log.Warn().Err(err).Str("path", path).Msg("render failed, serving placeholder")
		img, err = c.pipeline.Placeholder(w, h)
	}
	if err != nil {
		return nil, err
	}

	c.images.Set(cacheKey, img)
	return img, nil
}

func (c *Concerts) getBands(ctx context.Context) ([]band, error) {
	if bands, ok := c.bands.Get("bands"); ok {
		return bands, nil
	}

	u := c.cfg.BaseURL + "?id=" + url.QueryEscape(c.cfg.UserID)
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
		return nil, fmt.Errorf("%w: concert api status %d", ErrUpstream, resp.StatusCode)
	}

	var bands []band
	if err := json.NewDecoder(resp.Body).Decode(&bands); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	c.log.Info().Int("bands", len(bands)).Msg("fetched concert history")
	c.bands.Set("bands", bands)
	return bands, nil
}

func (c *Concerts) fetchBytes(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image fetch status %d", ErrUpstream, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// bandsToItems flattens every concert of every band into widget items,
// sorted most recent first. Album art never changes for a past show, so
// items cache permanently; content versioning rides on the cache key.
func bandsToItems(bands []band, limit int) []widget.Item {
	type flat struct {
		bandID  string
		date    string
		sortKey string
	}
	var all []flat
	for _, b := range bands {
		for _, con := range b.Concerts {
			key := con.Date
			if parts := strings.Split(con.Date, "-"); len(parts) == 3 {
				key = parts[2] + parts[1] + parts[0]
			}
			all = append(all, flat{bandID: b.ID, date: con.Date, sortKey: key})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].sortKey > all[j].sortKey })

	if len(all) > limit {
		all = all[:limit]
	}
	items := make([]widget.Item, 0, len(all))
	for _, f := range all {
		items = append(items, widget.Item{
			Width:       widget.WidthHalf,
			CachePolicy: widget.Permanent(),
			CacheKey:    hashConcert(f.bandID, f.date),
			Path:        f.bandID + "/" + url.PathEscape(f.date),
		})
	}
	return items
}

// parseItemPath splits "{band_id}/{escaped_date}".
func parseItemPath(path string) (bandID, date string, err error) {
	bandID, escaped, ok := strings.Cut(path, "/")
	if !ok || bandID == "" || escaped == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	date, uerr := url.PathUnescape(escaped)
	if uerr != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrBadPath, path, uerr)
	}
	return bandID, date, nil
}

// hashConcert derives the stable 32-bit content key for one concert,
// djb2 over "sawthat:{band_id}:{date}".
func hashConcert(bandID, date string) uint32 {
	key := "sawthat:" + bandID + ":" + date
	hash := uint32(5381)
	for i := 0; i < len(key); i++ {
		hash = hash*33 + uint32(key[i])
	}
	return hash
}

var months = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// formatDate rewrites DD-MM-YYYY as "July 17th, 2025". Unparseable input is
// returned as-is.
func formatDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return date
	}
	suffix := "th"
	switch day {
	case 1, 21, 31:
		suffix = "st"
	case 2, 22:
		suffix = "nd"
	case 3, 23:
		suffix = "rd"
	}
	return fmt.Sprintf("%s %d%s, %s", months[month-1], day, suffix, parts[2])
}
