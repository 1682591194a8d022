package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/sixcolor/photoframe/internal/widget"
)

const (
	listFile   = "widget.json"
	orientFile = "orient"
)

// DirStorage persists cache state under one directory, normally the mount
// point of the removable card:
//
//	widget.json   list metadata
//	orient        1-byte orientation
//	horiz/        horizontal image entries
//	vert/         vertical image entries
type DirStorage struct {
	root string
}

func NewDirStorage(root string) *DirStorage {
	return &DirStorage{root: root}
}

// Available checks that the root directory exists. A pulled card makes the
// mount point vanish or go unreadable, which is exactly this test.
func (d *DirStorage) Available() bool {
	info, err := os.Stat(d.root)
	return err == nil && info.IsDir()
}

func (d *DirStorage) ReadList() (*widget.List, error) {
	data, err := os.ReadFile(filepath.Join(d.root, listFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, d.wrap(err)
	}
	var l widget.List
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageCorrupt, listFile, err)
	}
	return &l, nil
}

func (d *DirStorage) WriteList(l *widget.List) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return d.writeFile(filepath.Join(d.root, listFile), data)
}

func (d *DirStorage) ReadOrientation() (widget.Orientation, error) {
	data, err := os.ReadFile(filepath.Join(d.root, orientFile))
	if err != nil {
		if os.IsNotExist(err) {
			return widget.Horizontal, nil
		}
		return widget.Horizontal, d.wrap(err)
	}
	if len(data) != 1 {
		return widget.Horizontal, fmt.Errorf("%w: %s: %d bytes", ErrStorageCorrupt, orientFile, len(data))
	}
	return widget.OrientationFromByte(data[0]), nil
}

func (d *DirStorage) WriteOrientation(o widget.Orientation) error {
	return d.writeFile(filepath.Join(d.root, orientFile), []byte{o.Byte()})
}

func (d *DirStorage) ReadImage(o widget.Orientation, name string) ([]byte, error) {
	data, err := os.ReadFile(d.imagePath(o, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, d.wrap(err)
	}
	return data, nil
}

func (d *DirStorage) WriteImage(o widget.Orientation, name string, data []byte) error {
	dir := filepath.Join(d.root, o.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return d.wrap(err)
	}
	return d.writeFile(d.imagePath(o, name), data)
}

func (d *DirStorage) DeleteImage(o widget.Orientation, name string) error {
	err := os.Remove(d.imagePath(o, name))
	if err != nil && !os.IsNotExist(err) {
		return d.wrap(err)
	}
	return nil
}

func (d *DirStorage) ListImages(o widget.Orientation) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, o.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, d.wrap(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *DirStorage) imagePath(o widget.Orientation, name string) string {
	return filepath.Join(d.root, o.String(), name)
}

// writeFile writes via a temp file and rename so a power cut mid-write never
// leaves a truncated entry behind.
func (d *DirStorage) writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return d.wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return d.wrap(err)
	}
	return nil
}

func (d *DirStorage) wrap(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %v", ErrStorageFull, err)
	}
	if !d.Available() {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
