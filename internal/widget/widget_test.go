package widget

import (
	"encoding/json"
	"testing"
	"time"
)

func TestItemJSONRoundTrip(t *testing.T) {
	item := Item{
		Width:       WidthHalf,
		CachePolicy: Permanent(),
		CacheKey:    3735928559,
		Path:        "abc/15-06-2024",
	}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"width":1,"cache_policy":"max","cache_key":3735928559,"path":"abc/15-06-2024"}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}

	var back Item
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != item {
		t.Errorf("round trip changed item: %+v", back)
	}
}

func TestWidthValidation(t *testing.T) {
	var w Width
	if err := json.Unmarshal([]byte("3"), &w); err == nil {
		t.Error("width 3 accepted")
	}
	if err := json.Unmarshal([]byte("2"), &w); err != nil || w != WidthFull {
		t.Errorf("width 2: %v, %v", w, err)
	}
}

func TestParseCachePolicy(t *testing.T) {
	cases := []struct {
		in   string
		want CachePolicy
	}{
		{"max", Permanent()},
		{"0", NoCache()},
		{"300", TTL(300)},
	}
	for _, c := range cases {
		got, err := ParseCachePolicy(c.in)
		if err != nil {
			t.Errorf("ParseCachePolicy(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseCachePolicy(%q) = %+v, want %+v", c.in, got, c.want)
		}
		if got.String() != c.in {
			t.Errorf("String() = %q, want %q", got.String(), c.in)
		}
	}
	if _, err := ParseCachePolicy("soon"); err == nil {
		t.Error("garbage policy accepted")
	}
}

func TestPolicyFresh(t *testing.T) {
	now := time.Now()
	fetched := now.Add(-60 * time.Second)

	if !Permanent().Fresh(fetched, now) {
		t.Error("permanent went stale")
	}
	if NoCache().Fresh(fetched, now) {
		t.Error("no-cache reported fresh")
	}
	if !TTL(61).Fresh(fetched, now) {
		t.Error("61s TTL stale after 60s")
	}
	if TTL(59).Fresh(fetched, now) {
		t.Error("59s TTL fresh after 60s")
	}
}

func TestOrientationDimensions(t *testing.T) {
	cases := []struct {
		o            Orientation
		w            Width
		wantW, wantH int
	}{
		{Horizontal, WidthHalf, 400, 480},
		{Horizontal, WidthFull, 800, 480},
		{Vertical, WidthHalf, 480, 800},
		{Vertical, WidthFull, 480, 800},
	}
	for _, c := range cases {
		w, h := c.o.Dimensions(c.w)
		if w != c.wantW || h != c.wantH {
			t.Errorf("%s/%d: %dx%d, want %dx%d", c.o, c.w, w, h, c.wantW, c.wantH)
		}
	}
}

func TestOrientationPersistence(t *testing.T) {
	if OrientationFromByte(Vertical.Byte()) != Vertical {
		t.Error("vertical byte round trip failed")
	}
	if OrientationFromByte(0xFF) != Horizontal {
		t.Error("corrupt byte did not fall back to horizontal")
	}
	if Horizontal.Toggle() != Vertical || Vertical.Toggle() != Horizontal {
		t.Error("toggle broken")
	}
}

func TestListStale(t *testing.T) {
	now := time.Now()
	var nilList *List
	if !nilList.Stale(now) {
		t.Error("nil list not stale")
	}

	l := &List{
		Items:     []Item{{CacheKey: 1}},
		Policy:    TTL(100),
		FetchedAt: now.Add(-50 * time.Second),
	}
	if l.Stale(now) {
		t.Error("fresh list reported stale")
	}
	l.FetchedAt = now.Add(-101 * time.Second)
	if !l.Stale(now) {
		t.Error("expired list reported fresh")
	}
}

func TestListKeys(t *testing.T) {
	l := &List{Items: []Item{{CacheKey: 1}, {CacheKey: 2}, {CacheKey: 1}}}
	keys := l.Keys()
	if len(keys) != 2 || keys[0] != 1 || keys[1] != 2 {
		t.Fatalf("keys = %v, want [1 2]", keys)
	}

	var nilList *List
	if got := nilList.Keys(); got != nil {
		t.Errorf("nil list keys = %v", got)
	}

	if _, ok := l.ItemByKey(2); !ok {
		t.Error("ItemByKey(2) missed")
	}
	if _, ok := l.ItemByKey(9); ok {
		t.Error("ItemByKey(9) hit")
	}
}
