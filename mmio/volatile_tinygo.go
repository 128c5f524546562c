//go:build tinygo

package mmio

import "runtime/volatile"

// Volatile accesses are emitted in program order and device memory on the
// supported cores is not reordered by the bus, so no extra fence is needed.

func load8(p *uint8) uint8        { return volatile.LoadUint8(p) }
func store8(p *uint8, v uint8)    { volatile.StoreUint8(p, v) }
func load32(p *uint32) uint32     { return volatile.LoadUint32(p) }
func store32(p *uint32, v uint32) { volatile.StoreUint32(p, v) }
func barrier()                    {}
