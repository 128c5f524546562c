//go:build linux && !tinygo

package mmio

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem is the physical-memory device used by Map when no path is given.
const DevMem = "/dev/mem"

// Mapping is a Window backed by an mmap'd region of a device file such as
// /dev/mem or /dev/uioN. It must be closed to release the mapping.
type Mapping struct {
	Window
	data []byte
}

// Map maps size bytes of the register block at physical address base through
// the device file at path (DevMem if empty). The page offset of base is
// handled internally; Base on the returned Mapping reports base.
func Map(path string, base, size uintptr) (*Mapping, error) {
	if path == "" {
		path = DevMem
	}
	if size == 0 {
		return nil, fmt.Errorf("mmio: invalid mapping size 0 at 0x%x", base)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmio: could not open %q: %w", path, err)
	}
	defer f.Close()

	page := uintptr(os.Getpagesize())
	start := base &^ (page - 1)
	skew := base - start
	span := (skew + size + page - 1) &^ (page - 1)

	data, err := unix.Mmap(
		int(f.Fd()),
		int64(start), int(span),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmio: could not mmap 0x%x+0x%x from %q: %w", start, span, path, err)
	}
	if len(data) != int(span) {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("mmio: invalid mmap'd length %d, want %d", len(data), span)
	}

	m := &Mapping{
		Window: Window{
			ptr:  unsafe.Add(unsafe.Pointer(&data[0]), skew),
			base: base,
			size: size,
		},
		data: data,
	}
	runtime.SetFinalizer(m, (*Mapping).Close)
	return m, nil
}

// Close unmaps the region. Any further register access panics.
func (m *Mapping) Close() error {
	if m == nil {
		return os.ErrInvalid
	}
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	m.Window = Window{}
	runtime.SetFinalizer(m, nil)

	return unix.Munmap(data)
}

// Closed reports whether the mapping has been released.
func (m *Mapping) Closed() bool { return m.data == nil }
