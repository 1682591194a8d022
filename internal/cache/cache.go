// Package cache is the device-side widget cache: it owns the persisted
// widget list, the orientation byte and the per-orientation image entries on
// removable storage, and reconciles them against each fresh widget list.
package cache

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/sixcolor/photoframe/internal/widget"
)

var (
	// ErrStorageUnavailable means no removable storage is present. The
	// device degrades to network-only for the session.
	ErrStorageUnavailable = errors.New("cache: storage unavailable")
	// ErrStorageFull means a store failed for lack of space. The affected
	// entry degrades to fetch-on-every-display.
	ErrStorageFull = errors.New("cache: storage full")
	// ErrStorageCorrupt means a persisted entry is unreadable or
	// malformed. Treated as a miss for that entry, never device-fatal.
	ErrStorageCorrupt = errors.New("cache: corrupt entry")
)

// Storage is the persistence boundary the manager writes through. Exactly
// one implementation runs on hardware (DirStorage over the mounted card);
// MemStorage stands in for it in tests.
type Storage interface {
	// Available reports whether the backing medium is present. When it
	// returns false every read is a miss and every write a no-op.
	Available() bool

	ReadList() (*widget.List, error)
	WriteList(*widget.List) error

	ReadOrientation() (widget.Orientation, error)
	WriteOrientation(widget.Orientation) error

	ReadImage(o widget.Orientation, name string) ([]byte, error)
	WriteImage(o widget.Orientation, name string, data []byte) error
	DeleteImage(o widget.Orientation, name string) error
	// ListImages returns the entry names present for one orientation.
	ListImages(o widget.Orientation) ([]string, error)
}

// EntryName derives the fixed-length on-storage file name for a logical item
// path: eight lowercase hex digits of the path's FNV-32a digest.
func EntryName(path string) string {
	h := fnv.New32a()
	h.Write([]byte(path))
	return fmt.Sprintf("%08x", h.Sum32())
}
