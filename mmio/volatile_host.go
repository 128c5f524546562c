//go:build !tinygo

package mmio

import "sync/atomic"

// The gc toolchain has no volatile qualifier. Word accesses go through
// sync/atomic, which the compiler never elides and which are sequentially
// consistent. Byte accesses use noinline helpers so the load or store is
// always performed.

var fence atomic.Uint32

//go:noinline
func load8(p *uint8) uint8 { return *p }

//go:noinline
func store8(p *uint8, v uint8) { *p = v }

func load32(p *uint32) uint32     { return atomic.LoadUint32(p) }
func store32(p *uint32, v uint32) { atomic.StoreUint32(p, v) }

func barrier() { fence.Add(1) }
