// Package widget defines the wire and data model shared between the
// rendering service and the field device: widget items, widget lists,
// cache policies, display orientation and width classes.
package widget

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Orientation is the device-wide display mode. It is persisted as a single
// byte on removable storage and toggled only by a button hold.
type Orientation uint8

const (
	Horizontal Orientation = 0
	Vertical   Orientation = 1
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vert"
	}
	return "horiz"
}

// ParseOrientation parses the path-segment form used by the image endpoint.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "horiz":
		return Horizontal, nil
	case "vert":
		return Vertical, nil
	}
	return Horizontal, fmt.Errorf("invalid orientation %q: use 'horiz' or 'vert'", s)
}

// Toggle flips between horizontal and vertical.
func (o Orientation) Toggle() Orientation {
	if o == Horizontal {
		return Vertical
	}
	return Horizontal
}

// Byte returns the persisted single-byte encoding.
func (o Orientation) Byte() byte { return byte(o) }

// OrientationFromByte decodes the persisted byte; anything unknown falls
// back to horizontal so a corrupt orientation file never bricks the device.
func OrientationFromByte(b byte) Orientation {
	if b == byte(Vertical) {
		return Vertical
	}
	return Horizontal
}

// Dimensions returns target pixel dimensions for this orientation and width
// class. Vertical mode is always full-screen regardless of width class.
func (o Orientation) Dimensions(w Width) (width, height int) {
	if o == Vertical {
		return 480, 800
	}
	if w == WidthFull {
		return 800, 480
	}
	return 400, 480
}

// Width is the item width class: half (400px) or full (800px) panel width.
type Width uint8

const (
	WidthHalf Width = 1
	WidthFull Width = 2
)

// Pixels returns the horizontal pixel count in horizontal orientation.
func (w Width) Pixels() int {
	if w == WidthFull {
		return 800
	}
	return 400
}

func (w Width) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(w))), nil
}

func (w *Width) UnmarshalJSON(data []byte) error {
	var v uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case 1:
		*w = WidthHalf
	case 2:
		*w = WidthFull
	default:
		return fmt.Errorf("invalid width %d: must be 1 or 2", v)
	}
	return nil
}

// PolicyKind discriminates the three freshness rules.
type PolicyKind uint8

const (
	// PolicyPermanent caches indefinitely; revalidated only by key change.
	PolicyPermanent PolicyKind = iota
	// PolicyTTL marks the owner stale after TTLSeconds since last fetch.
	PolicyTTL
	// PolicyNoCache bypasses storage; every display re-fetches.
	PolicyNoCache
)

// CachePolicy is the freshness rule attached to a list or item. The wire
// form is a string token: "max", "<seconds>", or "0" for no caching.
type CachePolicy struct {
	Kind       PolicyKind
	TTLSeconds uint32
}

func Permanent() CachePolicy         { return CachePolicy{Kind: PolicyPermanent} }
func TTL(seconds uint32) CachePolicy { return CachePolicy{Kind: PolicyTTL, TTLSeconds: seconds} }
func NoCache() CachePolicy           { return CachePolicy{Kind: PolicyNoCache} }

func (p CachePolicy) String() string {
	switch p.Kind {
	case PolicyPermanent:
		return "max"
	case PolicyNoCache:
		return "0"
	default:
		return strconv.FormatUint(uint64(p.TTLSeconds), 10)
	}
}

// ParseCachePolicy parses the wire token (also used for the X-Cache-Policy
// response header).
func ParseCachePolicy(s string) (CachePolicy, error) {
	if s == "max" {
		return Permanent(), nil
	}
	secs, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return CachePolicy{}, fmt.Errorf("invalid cache policy %q: %w", s, err)
	}
	if secs == 0 {
		return NoCache(), nil
	}
	return TTL(uint32(secs)), nil
}

// Fresh reports whether content fetched at fetchedAt is still fresh at now.
// Permanent content is always fresh; no-cache content never is.
func (p CachePolicy) Fresh(fetchedAt, now time.Time) bool {
	switch p.Kind {
	case PolicyPermanent:
		return true
	case PolicyNoCache:
		return false
	default:
		return now.Sub(fetchedAt) <= time.Duration(p.TTLSeconds)*time.Second
	}
}

func (p CachePolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *CachePolicy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCachePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Item is one displayable unit. Immutable once received; superseded
// wholesale on the next widget-list refresh.
type Item struct {
	Width       Width       `json:"width"`
	CachePolicy CachePolicy `json:"cache_policy"`
	CacheKey    uint32      `json:"cache_key"`
	Path        string      `json:"path"`
}

// List is the ordered item sequence for one named widget, together with the
// list-level freshness policy and the time of the last successful fetch.
type List struct {
	Name      string      `json:"name"`
	Items     []Item      `json:"items"`
	Policy    CachePolicy `json:"policy"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Stale reports whether the list must be re-fetched per its own policy.
func (l *List) Stale(now time.Time) bool {
	if l == nil || len(l.Items) == 0 {
		return true
	}
	return !l.Policy.Fresh(l.FetchedAt, now)
}

// Keys returns the distinct cache keys referenced by the list, in
// first-occurrence order.
func (l *List) Keys() []uint32 {
	if l == nil {
		return nil
	}
	seen := make(map[uint32]struct{}, len(l.Items))
	keys := make([]uint32, 0, len(l.Items))
	for _, it := range l.Items {
		if _, dup := seen[it.CacheKey]; dup {
			continue
		}
		seen[it.CacheKey] = struct{}{}
		keys = append(keys, it.CacheKey)
	}
	return keys
}

// ItemByKey returns the first item referencing key.
func (l *List) ItemByKey(key uint32) (Item, bool) {
	if l == nil {
		return Item{}, false
	}
	for _, it := range l.Items {
		if it.CacheKey == key {
			return it, true
		}
	}
	return Item{}, false
}
