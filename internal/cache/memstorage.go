package cache

import (
	"sort"
	"sync"

	"github.com/sixcolor/photoframe/internal/widget"
)

// MemStorage is an in-memory Storage used by tests and by development runs
// without a card. Failure injection fields simulate a pulled card and a full
// one.
type MemStorage struct {
	mu     sync.Mutex
	list   *widget.List
	orient widget.Orientation
	images [2]map[string][]byte

	// Absent makes Available return false and all reads miss.
	Absent bool
	// FailWrites makes every image write return ErrStorageFull.
	FailWrites bool
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		images: [2]map[string][]byte{{}, {}},
	}
}

func (m *MemStorage) Available() bool { return !m.Absent }

func (m *MemStorage) ReadList() (*widget.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return nil, ErrStorageUnavailable
	}
	return m.list, nil
}

func (m *MemStorage) WriteList(l *widget.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return ErrStorageUnavailable
	}
	m.list = l
	return nil
}

func (m *MemStorage) ReadOrientation() (widget.Orientation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return widget.Horizontal, ErrStorageUnavailable
	}
	return m.orient, nil
}

func (m *MemStorage) WriteOrientation(o widget.Orientation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return ErrStorageUnavailable
	}
	m.orient = o
	return nil
}

func (m *MemStorage) ReadImage(o widget.Orientation, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return nil, ErrStorageUnavailable
	}
	return m.images[o][name], nil
}

func (m *MemStorage) WriteImage(o widget.Orientation, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return ErrStorageUnavailable
	}
	if m.FailWrites {
		return ErrStorageFull
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.images[o][name] = cp
	return nil
}

func (m *MemStorage) DeleteImage(o widget.Orientation, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return ErrStorageUnavailable
	}
	delete(m.images[o], name)
	return nil
}

func (m *MemStorage) ListImages(o widget.Orientation) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Absent {
		return nil, ErrStorageUnavailable
	}
	names := make([]string, 0, len(m.images[o]))
	for n := range m.images[o] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
