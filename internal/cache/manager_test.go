package cache

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sixcolor/photoframe/internal/imgcodec"
	"github.com/sixcolor/photoframe/internal/palette"
	"github.com/sixcolor/photoframe/internal/widget"
)

func validImage(t *testing.T) []byte {
	t.Helper()
	data, err := imgcodec.Encode([]uint8{0, 1, 2, 3}, 2, 2, palette.RGBBytes())
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return data
}

func testItem(key uint32, path string) widget.Item {
	return widget.Item{
		Width:       widget.WidthHalf,
		CachePolicy: widget.Permanent(),
		CacheKey:    key,
		Path:        path,
	}
}

func testList(items ...widget.Item) *widget.List {
	return &widget.List{
		Name:      "concerts",
		Items:     items,
		Policy:    widget.TTL(86400),
		FetchedAt: time.Now(),
	}
}

func newTestManager(store Storage, prune bool) *Manager {
	return NewManager(store, prune, zerolog.Nop())
}

func sortedKeys(keys []uint32) []uint32 {
	out := append([]uint32(nil), keys...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestLookupStoreRoundTrip(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)
	img := validImage(t)

	list := testList(testItem(101, "a/1"))
	m.Reconcile(list, widget.Horizontal)

	if _, hit := m.Lookup(101, widget.Horizontal); hit {
		t.Fatal("hit before store")
	}
	if err := m.Store(101, widget.Horizontal, img); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, hit := m.Lookup(101, widget.Horizontal)
	if !hit {
		t.Fatal("miss after store")
	}
	if len(got) != len(img) {
		t.Fatalf("got %d bytes, want %d", len(got), len(img))
	}
}

func TestReconcileSetDifference(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)
	img := validImage(t)

	old := testList(
		testItem(101, "a/1"),
		testItem(102, "a/2"),
		testItem(103, "a/3"),
	)
	report := m.Reconcile(old, widget.Horizontal)
	if len(report.ToFetch) != 3 {
		t.Fatalf("initial ToFetch = %d, want 3", len(report.ToFetch))
	}
	for _, key := range []uint32{101, 102, 103} {
		if err := m.Store(key, widget.Horizontal, img); err != nil {
			t.Fatalf("Store(%d): %v", key, err)
		}
	}

	// 103 dropped, 104 added.
	fresh := testList(
		testItem(101, "a/1"),
		testItem(102, "a/2"),
		testItem(104, "a/4"),
	)
	report = m.Reconcile(fresh, widget.Horizontal)

	if got := sortedKeys(report.Deleted); len(got) != 1 || got[0] != 103 {
		t.Errorf("Deleted = %v, want [103]", got)
	}
	if len(report.ToFetch) != 1 || report.ToFetch[0].CacheKey != 104 {
		t.Errorf("ToFetch = %+v, want key 104", report.ToFetch)
	}
	if got := sortedKeys(report.Kept); len(got) != 2 || got[0] != 101 || got[1] != 102 {
		t.Errorf("Kept = %v, want [101 102]", got)
	}

	if _, hit := m.Lookup(103, widget.Horizontal); hit {
		t.Error("deleted entry still readable")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)
	img := validImage(t)

	list := testList(testItem(101, "a/1"), testItem(102, "a/2"))
	m.Reconcile(list, widget.Horizontal)
	m.Store(101, widget.Horizontal, img)
	m.Store(102, widget.Horizontal, img)

	report := m.Reconcile(testList(list.Items...), widget.Horizontal)
	if len(report.ToFetch) != 0 || len(report.Deleted) != 0 {
		t.Fatalf("second reconcile not empty: fetch=%d delete=%d",
			len(report.ToFetch), len(report.Deleted))
	}
}

func TestReconcileRefetchesChangedKey(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)
	img := validImage(t)

	m.Reconcile(testList(testItem(101, "a/1")), widget.Horizontal)
	if err := m.Store(101, widget.Horizontal, img); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Upstream re-rendered the same path under a new key.
	report := m.Reconcile(testList(testItem(201, "a/1")), widget.Horizontal)

	if len(report.ToFetch) != 1 || report.ToFetch[0].CacheKey != 201 {
		t.Fatalf("ToFetch = %+v, want key 201", report.ToFetch)
	}
	if len(report.Kept) != 0 {
		t.Errorf("stale entry reported kept: %v", report.Kept)
	}
	if got := sortedKeys(report.Deleted); len(got) != 1 || got[0] != 101 {
		t.Errorf("Deleted = %v, want [101]", got)
	}
	if _, hit := m.Lookup(201, widget.Horizontal); hit {
		t.Error("stale entry served under the new key")
	}
	if names, _ := store.ListImages(widget.Horizontal); len(names) != 0 {
		t.Errorf("stale entry survived key change: %v", names)
	}
}

func TestReconcileSharedKeyStoresOneEntry(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)
	img := validImage(t)

	// Two items share a key; the first path is canonical.
	list := testList(testItem(101, "a/1"), testItem(101, "b/1"))
	report := m.Reconcile(list, widget.Horizontal)
	if len(report.ToFetch) != 1 || report.ToFetch[0].Path != "a/1" {
		t.Fatalf("ToFetch = %+v, want only a/1", report.ToFetch)
	}

	if err := m.Store(101, widget.Horizontal, img); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if names, _ := store.ListImages(widget.Horizontal); len(names) != 1 {
		t.Fatalf("stored %d entries for one key", len(names))
	}

	// The duplicate must not trigger a re-fetch on every pass.
	report = m.Reconcile(testList(list.Items...), widget.Horizontal)
	if len(report.ToFetch) != 0 {
		t.Errorf("shared key re-fetched: %+v", report.ToFetch)
	}
	if got := sortedKeys(report.Kept); len(got) != 1 || got[0] != 101 {
		t.Errorf("Kept = %v, want [101]", got)
	}
}

func TestOrientationPartitioning(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)
	img := validImage(t)

	m.Reconcile(testList(testItem(101, "a/1")), widget.Horizontal)
	m.Store(101, widget.Horizontal, img)

	if _, hit := m.Lookup(101, widget.Vertical); hit {
		t.Fatal("vertical hit from horizontal entry")
	}
	if _, hit := m.Lookup(101, widget.Horizontal); !hit {
		t.Fatal("horizontal entry lost")
	}
}

func TestPruneInactiveOrientation(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, true)
	img := validImage(t)

	list := testList(testItem(101, "a/1"))
	m.Reconcile(list, widget.Horizontal)
	m.Store(101, widget.Horizontal, img)
	m.Store(101, widget.Vertical, img)

	m.Reconcile(testList(list.Items...), widget.Horizontal)
	if _, hit := m.Lookup(101, widget.Vertical); hit {
		t.Error("inactive orientation entry survived prune")
	}
	if _, hit := m.Lookup(101, widget.Horizontal); !hit {
		t.Error("active orientation entry pruned")
	}
}

func TestNoCacheItemsBypassStorage(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)

	item := testItem(101, "a/1")
	item.CachePolicy = widget.NoCache()
	report := m.Reconcile(testList(item), widget.Horizontal)
	if len(report.ToFetch) != 0 {
		t.Errorf("no-cache item reported for fetch: %+v", report.ToFetch)
	}

	if err := m.Store(101, widget.Horizontal, validImage(t)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, hit := m.Lookup(101, widget.Horizontal); hit {
		t.Error("no-cache item served from storage")
	}
	if names, _ := store.ListImages(widget.Horizontal); len(names) != 0 {
		t.Errorf("no-cache item persisted: %v", names)
	}
}

func TestCorruptEntryIsMissAndDeleted(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)

	m.Reconcile(testList(testItem(101, "a/1")), widget.Horizontal)
	store.WriteImage(widget.Horizontal, EntryName("a/1"), []byte("not an image at all"))

	if _, hit := m.Lookup(101, widget.Horizontal); hit {
		t.Fatal("corrupt entry served")
	}
	if names, _ := store.ListImages(widget.Horizontal); len(names) != 0 {
		t.Errorf("corrupt entry not deleted: %v", names)
	}
}

func TestAbsentStorageDegrades(t *testing.T) {
	store := NewMemStorage()
	store.Absent = true
	m := newTestManager(store, false)

	list, orient := m.Load()
	if list != nil || orient != widget.Horizontal {
		t.Fatalf("Load on absent storage: %v, %v", list, orient)
	}

	report := m.Reconcile(testList(testItem(101, "a/1")), widget.Horizontal)
	if len(report.ToFetch) != 1 {
		t.Fatalf("ToFetch = %d, want 1", len(report.ToFetch))
	}
	if _, hit := m.Lookup(101, widget.Horizontal); hit {
		t.Error("lookup hit with storage absent")
	}
	if err := m.Store(101, widget.Horizontal, validImage(t)); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Store = %v, want ErrStorageUnavailable", err)
	}
}

func TestStoreFullDegradesEntry(t *testing.T) {
	store := NewMemStorage()
	store.FailWrites = true
	m := newTestManager(store, false)

	m.Reconcile(testList(testItem(101, "a/1")), widget.Horizontal)
	if err := m.Store(101, widget.Horizontal, validImage(t)); !errors.Is(err, ErrStorageFull) {
		t.Fatalf("Store = %v, want ErrStorageFull", err)
	}
	if _, hit := m.Lookup(101, widget.Horizontal); hit {
		t.Error("entry readable after failed store")
	}
}

func TestOrphanEntriesEvicted(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)

	store.WriteImage(widget.Horizontal, "deadbeef", validImage(t))
	m.Reconcile(testList(testItem(101, "a/1")), widget.Horizontal)

	if names, _ := store.ListImages(widget.Horizontal); len(names) != 0 {
		t.Errorf("orphan survived reconcile: %v", names)
	}
}

func TestLoadPersistedState(t *testing.T) {
	store := NewMemStorage()
	m := newTestManager(store, false)

	list := testList(testItem(101, "a/1"))
	m.Reconcile(list, widget.Horizontal)
	m.SetOrientation(widget.Vertical)

	m2 := newTestManager(store, false)
	got, orient := m2.Load()
	if got == nil || len(got.Items) != 1 || got.Items[0].CacheKey != 101 {
		t.Fatalf("persisted list not restored: %+v", got)
	}
	if orient != widget.Vertical {
		t.Errorf("orientation = %v, want vertical", orient)
	}
}

func TestEntryName(t *testing.T) {
	name := EntryName("abc/15-06-2024")
	if len(name) != 8 {
		t.Fatalf("entry name %q not 8 chars", name)
	}
	if name != EntryName("abc/15-06-2024") {
		t.Error("entry name unstable")
	}
	if name == EntryName("abc/16-06-2024") {
		t.Error("distinct paths collide")
	}
}
