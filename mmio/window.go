package mmio

import (
	"errors"
	"unsafe"
)

var errUnmapped = errors.New("mmio: window not mapped")

// Window is a Port over directly addressable memory: a peripheral on a
// bare-metal target, or a region mapped into the process with Map.
type Window struct {
	ptr  unsafe.Pointer
	base uintptr
	size uintptr
}

// NewWindow returns a Window over the register block at addr. size may be zero
// when the extent is unknown.
func NewWindow(addr, size uintptr) *Window {
	return &Window{ptr: unsafe.Pointer(addr), base: addr, size: size}
}

// Base returns the address the Window was created for.
func (w *Window) Base() uintptr { return w.base }

// Size returns the extent of the Window in bytes, or 0 if unknown.
func (w *Window) Size() uintptr { return w.size }

// at returns the address of a width-byte access at off. The whole access
// must lie inside the window.
func (w *Window) at(off, width uintptr) unsafe.Pointer {
	if w.ptr == nil {
		panic(errUnmapped)
	}
	if w.size != 0 && (off >= w.size || width > w.size-off) {
		panic("mmio: register access out of range")
	}
	return unsafe.Add(w.ptr, off)
}

func (w *Window) Load8(off uintptr) uint8       { return load8((*uint8)(w.at(off, 1))) }
func (w *Window) Store8(off uintptr, v uint8)   { store8((*uint8)(w.at(off, 1)), v) }
func (w *Window) Load32(off uintptr) uint32     { return load32((*uint32)(w.at(off, 4))) }
func (w *Window) Store32(off uintptr, v uint32) { store32((*uint32)(w.at(off, 4)), v) }
func (w *Window) Barrier()                      { barrier() }

var _ Port = (*Window)(nil)
