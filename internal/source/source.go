// Package source defines widget data sources: upstream integrations that
// produce displayable items and render their images on demand.
package source

import (
	"context"
	"errors"

	"github.com/sixcolor/photoframe/internal/widget"
)

var (
	// ErrUnknownSource means no data source is registered under the name.
	ErrUnknownSource = errors.New("source: unknown widget")
	// ErrNotFound means the item path resolves to nothing upstream.
	ErrNotFound = errors.New("source: item not found")
	// ErrUpstream means an upstream API call failed.
	ErrUpstream = errors.New("source: upstream error")
	// ErrBadPath means the item path is malformed.
	ErrBadPath = errors.New("source: invalid item path")
)

// DataSource provides the items of one named widget and renders their
// images. Implementations are safe for concurrent use.
type DataSource interface {
	Name() string
	// ListPolicy is the freshness policy of the item list itself,
	// surfaced to the device in the X-Cache-Policy header.
	ListPolicy() widget.CachePolicy
	FetchItems(ctx context.Context) ([]widget.Item, error)
	FetchImage(ctx context.Context, path string, o widget.Orientation) ([]byte, error)
}

// Registry maps widget names to their data sources.
type Registry struct {
	sources map[string]DataSource
}

func NewRegistry(sources ...DataSource) *Registry {
	r := &Registry{sources: make(map[string]DataSource, len(sources))}
	for _, s := range sources {
		r.sources[s.Name()] = s
	}
	return r
}

func (r *Registry) Get(name string) (DataSource, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, ErrUnknownSource
	}
	return s, nil
}
