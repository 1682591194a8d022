package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const deezerBase = "https://api.deezer.com"

// deezerAlbum is the subset of the album payload we read.
type deezerAlbum struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	CoverXL     string `json:"cover_xl"`
	CoverBig    string `json:"cover_big"`
}

func (a deezerAlbum) coverURL() string {
	if a.CoverXL != "" {
		return a.CoverXL
	}
	return a.CoverBig
}

// deezerClient looks up era-appropriate album art: for a concert date it
// picks the artist's album released closest before that date.
type deezerClient struct {
	http *http.Client
	base string
}

func newDeezerClient(client *http.Client) *deezerClient {
	return &deezerClient{http: client, base: deezerBase}
}

func (d *deezerClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: deezer: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: deezer status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: deezer: %v", ErrUpstream, err)
	}
	return nil
}

func (d *deezerClient) searchArtist(ctx context.Context, name string) (int64, bool, error) {
	var res struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	u := d.base + "/search/artist?q=" + url.QueryEscape(name) + "&limit=1"
	if err := d.getJSON(ctx, u, &res); err != nil {
		return 0, false, err
	}
	if len(res.Data) == 0 {
		return 0, false, nil
	}
	return res.Data[0].ID, true, nil
}

func (d *deezerClient) fetchAlbums(ctx context.Context, artistID int64) ([]deezerAlbum, error) {
	var res struct {
		Data []deezerAlbum `json:"data"`
	}
	u := d.base + "/artist/" + strconv.FormatInt(artistID, 10) + "/albums?limit=100"
	if err := d.getJSON(ctx, u, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// AlbumArtForConcert returns the cover URL of the album released closest
// before the concert date (DD-MM-YYYY), or "" when nothing matches.
func (d *deezerClient) AlbumArtForConcert(ctx context.Context, artist, concertDate string) (string, error) {
	id, found, err := d.searchArtist(ctx, artist)
	if err != nil || !found {
		return "", err
	}
	albums, err := d.fetchAlbums(ctx, id)
	if err != nil {
		return "", err
	}
	if best := closestAlbum(albums, concertDate); best != nil {
		return best.coverURL(), nil
	}
	return "", nil
}

// closestAlbum finds the album released closest to, but not after, the
// concert date.
func closestAlbum(albums []deezerAlbum, concertDate string) *deezerAlbum {
	target, ok := parseConcertDate(concertDate)
	if !ok {
		return nil
	}
	var best *deezerAlbum
	bestDiff := uint32(1<<32 - 1)
	for i := range albums {
		release, ok := parseReleaseDate(albums[i].ReleaseDate)
		if !ok || release > target {
			continue
		}
		if diff := target - release; diff < bestDiff {
			bestDiff = diff
			best = &albums[i]
		}
	}
	return best
}

// parseConcertDate turns DD-MM-YYYY into a comparable YYYYMMDD integer.
func parseConcertDate(date string) (uint32, bool) {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return 0, false
	}
	return packDate(parts[2], parts[1], parts[0])
}

// parseReleaseDate turns YYYY-MM-DD into a comparable YYYYMMDD integer.
func parseReleaseDate(date string) (uint32, bool) {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return 0, false
	}
	return packDate(parts[0], parts[1], parts[2])
}

func packDate(year, month, day string) (uint32, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return uint32(y*10000 + m*100 + d), true
}
