package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sixcolor/photoframe/internal/imgcodec"
	"github.com/sixcolor/photoframe/internal/widget"
)

// Manager is the single owner of on-device cache state. Display-time lookups
// and background reconciliation both serialize through its mutex; there is
// never more than one writer on this device.
type Manager struct {
	mu     sync.Mutex
	store  Storage
	log    zerolog.Logger
	list   *widget.List
	orient widget.Orientation

	// pruneInactive additionally evicts every entry of the inactive
	// orientation during reconciliation, trading re-downloads after an
	// orientation toggle for roughly half the storage footprint.
	pruneInactive bool
}

func NewManager(store Storage, pruneInactive bool, log zerolog.Logger) *Manager {
	return &Manager{
		store:         store,
		pruneInactive: pruneInactive,
		log:           log.With().Str("component", "cache").Logger(),
	}
}

// Load reads the persisted widget list and orientation at boot. Absent or
// unreadable storage yields an empty list and horizontal orientation, which
// forces network init downstream.
func (m *Manager) Load() (*widget.List, widget.Orientation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.store.Available() {
		m.log.Warn().Msg("storage unavailable, running network-only")
		return nil, widget.Horizontal
	}
	list, err := m.store.ReadList()
	if err != nil {
		m.log.Warn().Err(err).Msg("persisted widget list unreadable")
		list = nil
	}
	orient, err := m.store.ReadOrientation()
	if err != nil {
		m.log.Warn().Err(err).Msg("orientation file unreadable")
		orient = widget.Horizontal
	}
	m.list = list
	m.orient = orient
	return list, orient
}

// List returns the current widget list, which may be nil before the first
// successful fetch.
func (m *Manager) List() *widget.List {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list
}

// Orientation returns the current orientation.
func (m *Manager) Orientation() widget.Orientation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orient
}

// SetOrientation updates and persists the orientation. Persistence failure
// is logged and ignored; the in-memory value still takes effect.
func (m *Manager) SetOrientation(o widget.Orientation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orient = o
	if !m.store.Available() {
		return
	}
	if err := m.store.WriteOrientation(o); err != nil {
		m.log.Warn().Err(err).Msg("persisting orientation failed")
	}
}

// Lookup returns the cached image bytes for a key and orientation, or a miss.
// Unavailable storage, no-cache items, unknown keys and corrupt entries are
// all misses; corrupt entries are deleted so the re-fetch replaces them.
func (m *Manager) Lookup(key uint32, o widget.Orientation) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.list.ItemByKey(key)
	if !ok || item.CachePolicy.Kind == widget.PolicyNoCache {
		return nil, false
	}
	if !m.store.Available() {
		return nil, false
	}

	name := EntryName(item.Path)
	data, err := m.store.ReadImage(o, name)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	if err := imgcodec.ValidateHeader(data); err != nil {
		m.log.Warn().Uint32("key", key).Str("entry", name).Err(err).Msg("corrupt cache entry dropped")
		if derr := m.store.DeleteImage(o, name); derr != nil {
			m.log.Warn().Err(derr).Msg("deleting corrupt entry failed")
		}
		return nil, false
	}
	return data, true
}

// Store persists fetched image bytes for a key and orientation. Errors are
// non-fatal to the caller: the device displays from the in-memory bytes it
// already holds and the entry degrades to fetch-on-every-display.
func (m *Manager) Store(key uint32, o widget.Orientation, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.list.ItemByKey(key)
	if !ok {
		return fmt.Errorf("cache: store for unknown key %d", key)
	}
	if item.CachePolicy.Kind == widget.PolicyNoCache {
		return nil
	}
	if !m.store.Available() {
		return ErrStorageUnavailable
	}
	if err := m.store.WriteImage(o, EntryName(item.Path), data); err != nil {
		if errors.Is(err, ErrStorageFull) || errors.Is(err, ErrStorageUnavailable) {
			return err
		}
		return fmt.Errorf("cache: store key %d: %w", key, err)
	}
	return nil
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	// ToFetch lists items whose entry is missing or invalid, one per
	// cache key.
	ToFetch []widget.Item
	// Deleted holds the cache keys of evicted entries.
	Deleted []uint32
	// Kept holds the keys whose active-orientation entry survived.
	Kept []uint32
}

// Reconcile replaces the tracked widget list with newList and brings storage
// in line with it: entries no longer referenced by any item are deleted, for
// both orientations, before any fetch is reported. Deletion precedes fetch
// unconditionally so peak storage use stays bounded. A stored entry counts as
// referenced only while its item's cache key matches the one it was fetched
// under; the same path arriving with a new key means re-rendered content, so
// the stale entry is evicted and the item re-fetched. Items with a no-cache
// policy are never fetched into storage and any leftover entry for them is
// evicted.
func (m *Manager) Reconcile(newList *widget.List, active widget.Orientation) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// One entry per cache key. Duplicate keys resolve to the first item
	// carrying the key, the same resolution Lookup and Store apply.
	canonical := make([]widget.Item, 0, len(newList.Items))
	for _, key := range newList.Keys() {
		if it, ok := newList.ItemByKey(key); ok {
			canonical = append(canonical, it)
		}
	}

	// The tracked list records which key each entry was stored under.
	storedKeys := make(map[string]uint32)
	if m.list != nil {
		for _, it := range m.list.Items {
			storedKeys[EntryName(it.Path)] = it.CacheKey
		}
	}

	referenced := make(map[string]struct{})
	for _, it := range canonical {
		if it.CachePolicy.Kind == widget.PolicyNoCache {
			continue
		}
		name := EntryName(it.Path)
		if key, ok := storedKeys[name]; ok && key == it.CacheKey {
			referenced[name] = struct{}{}
		}
	}

	// For eviction reporting, prefer the key an entry was stored under
	// over the incoming one.
	nameToKey := make(map[string]uint32)
	for _, it := range newList.Items {
		nameToKey[EntryName(it.Path)] = it.CacheKey
	}
	for name, key := range storedKeys {
		nameToKey[name] = key
	}

	var report Report
	if m.store.Available() {
		for _, o := range []widget.Orientation{widget.Horizontal, widget.Vertical} {
			names, err := m.store.ListImages(o)
			if err != nil {
				m.log.Warn().Err(err).Str("orientation", o.String()).Msg("listing cache entries failed")
				continue
			}
			for _, name := range names {
				_, keep := referenced[name]
				if m.pruneInactive && o != active {
					keep = false
				}
				if keep {
					continue
				}
				if err := m.store.DeleteImage(o, name); err != nil {
					m.log.Warn().Err(err).Str("entry", name).Msg("evicting entry failed")
					continue
				}
				if key, ok := nameToKey[name]; ok {
					report.Deleted = append(report.Deleted, key)
				} else {
					m.log.Debug().Str("entry", name).Msg("evicted orphan entry")
				}
			}
		}
	}

	for _, it := range canonical {
		if it.CachePolicy.Kind == widget.PolicyNoCache {
			continue
		}
		name := EntryName(it.Path)
		if _, keep := referenced[name]; keep && m.validEntry(active, name) {
			report.Kept = append(report.Kept, it.CacheKey)
		} else {
			report.ToFetch = append(report.ToFetch, it)
		}
	}

	m.list = newList
	if m.store.Available() {
		if err := m.store.WriteList(newList); err != nil {
			m.log.Warn().Err(err).Msg("persisting widget list failed")
		}
	}
	return report
}

func (m *Manager) validEntry(o widget.Orientation, name string) bool {
	if !m.store.Available() {
		return false
	}
	data, err := m.store.ReadImage(o, name)
	if err != nil || len(data) == 0 {
		return false
	}
	return imgcodec.ValidateHeader(data) == nil
}
