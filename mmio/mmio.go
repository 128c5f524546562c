// Package mmio provides volatile access to memory-mapped peripheral registers.
//
// A Port is addressed by byte offset from the peripheral base. Every access is a
// single load or store of the stated width and is never merged, split or reordered
// with respect to other accesses on the same Port.
package mmio

// Port is a window onto a block of device registers.
type Port interface {
	// Base returns the physical base address of the register block. It is used
	// to tell register blocks apart, never dereferenced through this interface.
	Base() uintptr

	Load8(off uintptr) uint8
	Store8(off uintptr, v uint8)
	Load32(off uintptr) uint32
	Store32(off uintptr, v uint32)

	// Barrier orders all earlier accesses before all later ones. Callers put it
	// between a status read and the data read that depends on it.
	Barrier()
}
