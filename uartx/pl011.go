package uartx

import "github.com/jangala-dev/uartcore/mmio"

// DefaultPL011Clock is the reference clock assumed by EstimatePL011Clock when
// the divisor registers are unprogrammed.
const DefaultPL011Clock = 24000000

// pl011 drives an ARM PrimeCell UART. Its status registers can be polled
// without side effects, so it needs no staging buffer: data stays in the
// hardware FIFO until read.
type pl011 struct {
	port  mmio.Port
	clock uint32
	opts  *options
	stats *Stats
}

func (c *pl011) name() string { return "pl011" }

func (c *pl011) read(off uintptr) uint32     { return c.port.Load32(off) }
func (c *pl011) write(off uintptr, v uint32) { c.port.Store32(off, v) }

func (c *pl011) modify(off uintptr, f func(uint32) uint32) {
	c.write(off, f(c.read(off)))
}

func (c *pl011) init() {
	c.modify(pl011CR, pl011CRUARTEN.Clear)
	c.waitIdle()

	// Toggling FEN flushes both FIFOs.
	c.modify(pl011LCRH, pl011LCRHFEN.Clear)
	c.modify(pl011LCRH, pl011LCRHFEN.Set)

	c.write(pl011IMSC, 0)
	c.write(pl011ICR, pl011IntAll)
	c.write(pl011RSR, 0)

	c.modify(pl011CR, func(v uint32) uint32 {
		return v | pl011CRUARTEN.Mask() | pl011CRTXE.Mask() | pl011CRRXE.Mask()
	})
}

func (c *pl011) shutdown() {
	c.write(pl011IMSC, 0)
	c.modify(pl011CR, pl011CRUARTEN.Clear)
}

// waitIdle polls FR.BUSY until the transmitter has shifted out its last
// character, up to the busy-wait limit.
func (c *pl011) waitIdle() bool {
	for i := 0; i < c.opts.busyWait; i++ {
		if !pl011FRBUSY.IsSet(c.read(pl011FR)) {
			return true
		}
	}
	return false
}

func (c *pl011) format() Format {
	lcrh := pl011LineCtrl(c.read(pl011LCRH))
	return Format{DataBits: lcrh.dataBits(), StopBits: lcrh.stopBits(), Parity: lcrh.parity()}
}

// computeDivisor splits UARTCLK/(16*baud) into a 16-bit integer part and a
// 6-bit fraction rounded to the nearest 64th.
func (c *pl011) computeDivisor(baud uint32) (divisor, error) {
	if baud == 0 || c.clock == 0 {
		return divisor{}, ErrInvalidBaudrate
	}
	den := 16 * uint64(baud)
	ibrd := uint64(c.clock) / den
	rem := uint64(c.clock) % den
	fbrd := (rem*64 + den/2) / den
	if fbrd == 64 {
		ibrd++
		fbrd = 0
	}
	if ibrd == 0 || ibrd > 0xffff {
		return divisor{}, ErrInvalidBaudrate
	}
	return divisor{integer: uint16(ibrd), fraction: uint8(fbrd)}, nil
}

func (c *pl011) currentDivisor() divisor {
	return divisor{
		integer:  uint16(pl011IBRDDivInt.Get(c.read(pl011IBRD))),
		fraction: uint8(pl011FBRDDivFrac.Get(c.read(pl011FBRD))),
	}
}

func (c *pl011) baudFromDivisor(div divisor) uint32 {
	d64 := uint64(div.integer)*64 + uint64(div.fraction)
	if d64 == 0 {
		return 0
	}
	// baud = clk / (16 * d64/64)
	return uint32((uint64(c.clock)*4 + d64/2) / d64)
}

func (c *pl011) configure(cfg Config, div divisor) error {
	cr := c.read(pl011CR)
	c.write(pl011CR, pl011CRUARTEN.Clear(cr))
	if !c.waitIdle() {
		c.write(pl011CR, cr)
		return ErrTimeout
	}

	lcrh := pl011LineCtrl(c.read(pl011LCRH)).withFIFO(false)
	c.write(pl011LCRH, uint32(lcrh))

	if cfg.BaudRate != 0 {
		c.write(pl011IBRD, pl011IBRDDivInt.Val(uint32(div.integer)))
		c.write(pl011FBRD, pl011FBRDDivFrac.Val(uint32(div.fraction)))
	}
	if cfg.DataBits != 0 {
		lcrh = lcrh.withDataBits(cfg.DataBits)
	}
	if cfg.StopBits != 0 {
		lcrh = lcrh.withStopBits(cfg.StopBits)
	}
	if cfg.Parity != 0 {
		lcrh = lcrh.withParity(cfg.Parity)
	}
	// The LCR_H write also latches IBRD and FBRD.
	c.write(pl011LCRH, uint32(lcrh.withFIFO(true)))

	c.write(pl011CR, cr)
	return nil
}

func (c *pl011) sendByte(b byte) bool {
	if pl011FRTXFF.IsSet(c.read(pl011FR)) {
		return false
	}
	c.write(pl011DR, uint32(b))
	return true
}

func (c *pl011) canSend() bool { return !pl011FRTXFF.IsSet(c.read(pl011FR)) }

func (c *pl011) readByte() (byte, error) {
	if pl011FRRXFE.IsSet(c.read(pl011FR)) {
		return 0, ErrBufferEmpty
	}
	c.port.Barrier()
	dr := c.read(pl011DR)
	if err, ok := pl011Errors(dr); ok {
		c.stats.lineError(err.Kind)
		c.write(pl011RSR, 0)
		return 0, err
	}
	return byte(pl011DRData.Get(dr)), nil
}

func (c *pl011) canRead() bool { return !pl011FRRXFE.IsSet(c.read(pl011FR)) }

func (c *pl011) buffered() int { return 0 }

func (c *pl011) lineStatus() LineStatus {
	fr := c.read(pl011FR)
	var s LineStatus
	if !pl011FRRXFE.IsSet(fr) {
		s |= LineDataReady
	}
	if !pl011FRTXFF.IsSet(fr) {
		s |= LineTxHoldingEmpty
	}
	if pl011FRTXFE.IsSet(fr) && !pl011FRBUSY.IsSet(fr) {
		s |= LineTxEmpty
	}
	return s
}

func (c *pl011) clearErrors() {
	c.write(pl011RSR, 0)
	c.write(pl011ICR, pl011IntErrors)
}

// clearFIFOs drains the receive FIFO by reading it. The transmit FIFO can
// only be flushed by toggling FEN, which discards pending receive data too.
func (c *pl011) clearFIFOs(rx, tx bool) {
	if rx {
		for i := 0; i < int(c.opts.fifoDepth) && !pl011FRRXFE.IsSet(c.read(pl011FR)); i++ {
			c.read(pl011DR)
		}
		c.write(pl011RSR, 0)
	}
	if tx {
		c.modify(pl011LCRH, pl011LCRHFEN.Clear)
		c.modify(pl011LCRH, pl011LCRHFEN.Set)
	}
}

// classify acknowledges exactly the masked interrupt bits it observed.
func (c *pl011) classify() Cause {
	mis := c.read(pl011MIS)
	if mis == 0 {
		return CauseNone
	}
	var cause Cause
	if mis&(pl011IntRX|pl011IntRT|pl011IntErrors) != 0 {
		cause |= CauseReceiveReady
	}
	if mis&pl011IntTX != 0 {
		cause |= CauseTransmitEmpty
	}
	c.write(pl011ICR, mis)
	return cause
}

func pl011IntBits(causes Cause) uint32 {
	var m uint32
	if causes&CauseReceiveReady != 0 {
		m |= pl011IntRX | pl011IntRT
	}
	if causes&CauseTransmitEmpty != 0 {
		m |= pl011IntTX
	}
	return m
}

func (c *pl011) setInterrupts(causes Cause, on bool) {
	m := pl011IntBits(causes)
	c.modify(pl011IMSC, func(v uint32) uint32 {
		if on {
			return v | m
		}
		return v &^ m
	})
}

func (c *pl011) interruptMask() Cause {
	imsc := c.read(pl011IMSC)
	var causes Cause
	if imsc&(pl011IntRX|pl011IntRT) != 0 {
		causes |= CauseReceiveReady
	}
	if imsc&pl011IntTX != 0 {
		causes |= CauseTransmitEmpty
	}
	return causes
}

func (c *pl011) setLoopback(on bool) {
	c.modify(pl011CR, func(v uint32) uint32 { return pl011CRLBE.Assign(v, on) })
}

func (c *pl011) loopback() bool { return pl011CRLBE.IsSet(c.read(pl011CR)) }

func (c *pl011) enableFIFO(on bool) {
	c.modify(pl011LCRH, func(v uint32) uint32 { return pl011LCRHFEN.Assign(v, on) })
}

func (c *pl011) hasFIFO() bool { return true }

// pl011Eighths are the IFLS trigger points in eighths of the FIFO depth.
var pl011Eighths = [...]uint8{1, 2, 4, 6, 7}

func (c *pl011) tiers() []uint8 {
	t := make([]uint8, len(pl011Eighths))
	for i, e := range pl011Eighths {
		t[i] = uint8(uint16(c.opts.fifoDepth) * uint16(e) / 8)
	}
	return t
}

// setTriggerLevel programs the same tier for receive and transmit.
func (c *pl011) setTriggerLevel(level uint8) uint8 {
	tiers := c.tiers()
	i := pickTier(level, tiers)
	c.modify(pl011IFLS, func(v uint32) uint32 {
		v = pl011IFLSRX.With(v, uint32(i))
		return pl011IFLSTX.With(v, uint32(i))
	})
	return tiers[i]
}

// registers skips UARTDR: reading it pops the receive FIFO.
func (c *pl011) registers() []Register {
	regs := []struct {
		name string
		off  uintptr
	}{
		{"RSR", pl011RSR}, {"FR", pl011FR}, {"ILPR", pl011ILPR},
		{"IBRD", pl011IBRD}, {"FBRD", pl011FBRD}, {"LCR_H", pl011LCRH},
		{"CR", pl011CR}, {"IFLS", pl011IFLS}, {"IMSC", pl011IMSC},
		{"RIS", pl011RIS}, {"MIS", pl011MIS}, {"DMACR", pl011DMACR},
	}
	out := make([]Register, len(regs))
	for i, r := range regs {
		out[i] = Register{Name: r.name, Offset: r.off, Value: c.read(r.off)}
	}
	return out
}

// EstimatePL011Clock guesses UARTCLK from the divisor a boot stage left
// programmed, assuming it was set for 115200 baud. With no divisor
// programmed it returns DefaultPL011Clock.
func EstimatePL011Clock(port mmio.Port) uint32 {
	ibrd := uint64(pl011IBRDDivInt.Get(port.Load32(pl011IBRD)))
	fbrd := uint64(pl011FBRDDivFrac.Get(port.Load32(pl011FBRD)))
	if ibrd == 0 {
		return DefaultPL011Clock
	}
	// clk = 16 * 115200 * (ibrd + fbrd/64)
	return uint32(115200 * (ibrd*64 + fbrd) / 4)
}
