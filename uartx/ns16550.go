package uartx

import "github.com/jangala-dev/uartcore/mmio"

// ns16550 drives an NS16550-compatible UART. Reading LSR clears its error
// bits and reading RBR pops the receive FIFO, so every path that reads either
// register runs inside the critical section and routes what it sees through
// the staging buffer and the error latch.
type ns16550 struct {
	port  mmio.Port
	clock uint32
	rx    *rxState
	stats *Stats

	shift    uint8
	width    uint8
	busyWait int

	fcr     uint8 // shadow of the write-only FCR, without the clear bits
	txArmed bool  // TransmitEmpty enabled; THRI is re-armed on every send
}

func (c *ns16550) name() string { return "ns16550" }

func (c *ns16550) off(reg uint8) uintptr { return uintptr(reg) << c.shift }

func (c *ns16550) read(reg uint8) uint8 {
	if c.width == 4 {
		return uint8(c.port.Load32(c.off(reg)))
	}
	return c.port.Load8(c.off(reg))
}

func (c *ns16550) write(reg, v uint8) {
	if c.width == 4 {
		c.port.Store32(c.off(reg), uint32(v))
		return
	}
	c.port.Store8(c.off(reg), v)
}

// readLSR reads the line status and latches any error it reports.
// Callers hold the critical section.
func (c *ns16550) readLSR() uint8 {
	lsr := c.read(ns16550LSR)
	if err, ok := ns16550Errors(lsr, 0); ok {
		err.HasData = false
		c.stats.lineError(err.Kind)
		c.rx.latch(err)
	}
	return lsr
}

func (c *ns16550) init() {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	c.write(ns16550IER, 0)
	c.txArmed = false
	mcr := c.read(ns16550MCR)
	c.write(ns16550MCR, ns16550MCRDTR.Set(ns16550MCRRTS.Set(mcr)))
	c.fcr |= ns16550FCREnable
	c.write(ns16550FCR, c.fcr|ns16550FCRClearRx|ns16550FCRClearTx)
	c.read(ns16550LSR)
	c.rx.staged.Clear()
	c.rx.latched.clear()
}

func (c *ns16550) shutdown() {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	c.write(ns16550IER, 0)
	c.txArmed = false
	mcr := c.read(ns16550MCR)
	c.write(ns16550MCR, ns16550MCRDTR.Clear(ns16550MCRRTS.Clear(mcr)))
}

func (c *ns16550) format() Format {
	lcr := ns16550LineCtrl(c.read(ns16550LCR))
	return Format{DataBits: lcr.dataBits(), StopBits: lcr.stopBits(), Parity: lcr.parity()}
}

func (c *ns16550) computeDivisor(baud uint32) (divisor, error) {
	if baud == 0 || c.clock == 0 {
		return divisor{}, ErrInvalidBaudrate
	}
	div := uint64(c.clock) / (16 * uint64(baud))
	if div == 0 || div > 0xffff {
		return divisor{}, ErrInvalidBaudrate
	}
	return divisor{integer: uint16(div)}, nil
}

func (c *ns16550) currentDivisor() divisor {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	lcr := c.read(ns16550LCR)
	c.write(ns16550LCR, ns16550LCRDLAB.Set(lcr))
	lo, hi := c.read(ns16550DLL), c.read(ns16550DLM)
	c.write(ns16550LCR, lcr)
	return divisor{integer: uint16(hi)<<8 | uint16(lo)}
}

func (c *ns16550) baudFromDivisor(div divisor) uint32 {
	if div.integer == 0 {
		return 0
	}
	return c.clock / (16 * uint32(div.integer))
}

// waitIdle polls LSR.TEMT up to the busy-wait limit. Callers hold the
// critical section.
func (c *ns16550) waitIdle() bool {
	for i := 0; i < c.busyWait; i++ {
		if c.readLSR()&ns16550LSRTEMT != 0 {
			return true
		}
	}
	return false
}

func (c *ns16550) configure(cfg Config, div divisor) error {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	ier := c.read(ns16550IER)
	c.write(ns16550IER, 0)
	if !c.waitIdle() {
		c.write(ns16550IER, ier)
		return ErrTimeout
	}
	c.write(ns16550FCR, 0)

	lcr := ns16550LineCtrl(ns16550LCRDLAB.Clear(c.read(ns16550LCR)))
	if cfg.BaudRate != 0 {
		c.write(ns16550LCR, ns16550LCRDLAB.Set(uint8(lcr)))
		c.write(ns16550DLL, uint8(div.integer))
		c.write(ns16550DLM, uint8(div.integer>>8))
		c.write(ns16550LCR, uint8(lcr))
	}
	if cfg.DataBits != 0 {
		lcr = lcr.withDataBits(cfg.DataBits)
	}
	if cfg.StopBits != 0 {
		lcr = lcr.withStopBits(cfg.StopBits)
	}
	if cfg.Parity != 0 {
		lcr = lcr.withParity(cfg.Parity)
	}
	c.write(ns16550LCR, uint8(lcr))

	c.write(ns16550FCR, c.fcr)
	c.write(ns16550IER, ier)
	return nil
}

func (c *ns16550) sendByte(b byte) bool {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	if c.readLSR()&ns16550LSRTHRE == 0 {
		return false
	}
	c.write(ns16550THR, b)
	if c.txArmed {
		c.write(ns16550IER, c.read(ns16550IER)|ns16550IERTHRI)
	}
	return true
}

func (c *ns16550) canSend() bool {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)
	return c.readLSR()&ns16550LSRTHRE != 0
}

// readByte returns staged bytes oldest first, a latched error at the point
// in the stream where it was seen, then whatever the receiver holds. A
// staging overrun is due before the staged bytes.
func (c *ns16550) readByte() (byte, error) {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	if c.rx.latched.due() {
		err, _ := c.rx.latched.take()
		return 0, err
	}
	if b, ok := c.rx.staged.Get(); ok {
		c.rx.latched.passed()
		return b, nil
	}
	if err, ok := c.rx.latched.take(); ok {
		return 0, err
	}

	lsr := c.read(ns16550LSR)
	ready := lsr&ns16550LSRDR != 0
	var b byte
	if ready {
		c.port.Barrier()
		b = c.read(ns16550RBR)
	}
	if err, ok := ns16550Errors(lsr, b); ok {
		if !ready {
			err.Data, err.HasData = 0, false
		}
		c.stats.lineError(err.Kind)
		return 0, err
	}
	if !ready {
		return 0, ErrBufferEmpty
	}
	return b, nil
}

func (c *ns16550) canRead() bool {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	if c.rx.latched.set || c.rx.staged.Used() > 0 {
		return true
	}
	if c.readLSR()&ns16550LSRDR != 0 {
		return true
	}
	return c.rx.latched.set
}

func (c *ns16550) buffered() int {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)
	return int(c.rx.staged.Used())
}

func (c *ns16550) lineStatus() LineStatus {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	lsr := c.readLSR()
	var st LineStatus
	if lsr&ns16550LSRDR != 0 || c.rx.staged.Used() > 0 {
		st |= LineDataReady
	}
	if lsr&ns16550LSRTHRE != 0 {
		st |= LineTxHoldingEmpty
	}
	if lsr&ns16550LSRTEMT != 0 {
		st |= LineTxEmpty
	}
	return st
}

func (c *ns16550) clearErrors() {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	c.read(ns16550LSR)
	c.rx.latched.clear()
}

func (c *ns16550) clearFIFOs(rx, tx bool) {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	v := c.fcr
	if rx {
		v |= ns16550FCRClearRx
		c.rx.dropStaged()
	}
	if tx {
		v |= ns16550FCRClearTx
	}
	if c.fcr&ns16550FCREnable != 0 {
		c.write(ns16550FCR, v)
	}
}

// classify services the single highest-priority pending interrupt.
func (c *ns16550) classify() Cause {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	iir := c.read(ns16550IIR)
	if iir&ns16550IIRNoInt != 0 {
		return CauseNone
	}
	switch iir & ns16550IIRID {
	case ns16550IIRRLSI:
		lsr := c.read(ns16550LSR)
		ready := lsr&ns16550LSRDR != 0
		var b byte
		if ready {
			b = c.read(ns16550RBR)
		}
		if err, ok := ns16550Errors(lsr, b); ok {
			if !ready {
				err.Data, err.HasData = 0, false
			}
			c.stats.lineError(err.Kind)
			c.rx.latch(err)
		} else if ready {
			c.stageByte(b)
		}
		return CauseReceiveReady
	case ns16550IIRRDI, ns16550IIRCTI:
		c.drain()
		return CauseReceiveReady
	case ns16550IIRTHRI:
		c.write(ns16550IER, c.read(ns16550IER)&^ns16550IERTHRI)
		return CauseTransmitEmpty
	case ns16550IIRMSI:
		c.read(ns16550MSR)
	}
	return CauseNone
}

// drain moves received bytes into the staging buffer, at most one FIFO's
// worth. A byte arriving with an error bit is latched instead of staged.
func (c *ns16550) drain() {
	for i := 0; i < ns16550FIFODepth; i++ {
		lsr := c.read(ns16550LSR)
		if lsr&ns16550LSRDR == 0 {
			if err, ok := ns16550Errors(lsr, 0); ok {
				err.HasData = false
				c.stats.lineError(err.Kind)
				c.rx.latch(err)
			}
			return
		}
		c.port.Barrier()
		b := c.read(ns16550RBR)
		if err, ok := ns16550Errors(lsr, b); ok {
			c.stats.lineError(err.Kind)
			c.rx.latch(err)
			return
		}
		c.stageByte(b)
	}
}

func (c *ns16550) stageByte(b byte) {
	ok := c.rx.stage(b)
	c.stats.staged(ok, c.rx.staged.Used())
}

func (c *ns16550) setInterrupts(causes Cause, on bool) {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	var m uint8
	if causes&CauseReceiveReady != 0 {
		m |= ns16550IERRDI | ns16550IERRLSI
	}
	if causes&CauseTransmitEmpty != 0 {
		m |= ns16550IERTHRI
		c.txArmed = on
	}
	ier := c.read(ns16550IER)
	if on {
		ier |= m
	} else {
		ier &^= m
	}
	c.write(ns16550IER, ier)
}

func (c *ns16550) interruptMask() Cause {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	var causes Cause
	if c.read(ns16550IER)&ns16550IERRDI != 0 {
		causes |= CauseReceiveReady
	}
	if c.txArmed {
		causes |= CauseTransmitEmpty
	}
	return causes
}

func (c *ns16550) setLoopback(on bool) {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)
	c.write(ns16550MCR, ns16550MCRLOOP.Assign(c.read(ns16550MCR), on))
}

func (c *ns16550) loopback() bool {
	return ns16550MCRLOOP.IsSet(c.read(ns16550MCR))
}

func (c *ns16550) enableFIFO(on bool) {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	if on {
		c.fcr |= ns16550FCREnable
		c.write(ns16550FCR, c.fcr|ns16550FCRClearRx|ns16550FCRClearTx)
		return
	}
	c.fcr &^= ns16550FCREnable
	c.write(ns16550FCR, 0)
}

// hasFIFO checks IIR bits 7:6, which read 11 on a 16550A or later with its
// FIFOs enabled. The IIR read acknowledges a pending THRI, so one seen here
// is re-raised by toggling IER.THRI.
func (c *ns16550) hasFIFO() bool {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	iir := c.read(ns16550IIR)
	if iir&ns16550IIRNoInt == 0 && iir&ns16550IIRID == ns16550IIRTHRI {
		ier := c.read(ns16550IER)
		c.write(ns16550IER, ier&^ns16550IERTHRI)
		c.write(ns16550IER, ier)
	}
	return iir&ns16550IIRFIFOs == ns16550IIRFIFOs
}

func (c *ns16550) setTriggerLevel(level uint8) uint8 {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	i := pickTier(level, ns16550TierFrom)
	c.fcr = ns16550FCRTrigger.Clear(c.fcr) | ns16550TierBits[i]
	if c.fcr&ns16550FCREnable != 0 {
		c.write(ns16550FCR, c.fcr)
	}
	return ns16550Tiers[i]
}

// registers never touches RBR, IIR, LSR or MSR, whose reads have side
// effects. FCR is reported from the shadow copy.
func (c *ns16550) registers() []Register {
	s := c.rx.cs.enter()
	defer c.rx.cs.exit(s)

	lcr := c.read(ns16550LCR)
	c.write(ns16550LCR, ns16550LCRDLAB.Set(lcr))
	dll, dlm := c.read(ns16550DLL), c.read(ns16550DLM)
	c.write(ns16550LCR, lcr)

	return []Register{
		{Name: "IER", Offset: c.off(ns16550IER), Value: uint32(c.read(ns16550IER))},
		{Name: "FCR", Offset: c.off(ns16550FCR), Value: uint32(c.fcr)},
		{Name: "LCR", Offset: c.off(ns16550LCR), Value: uint32(lcr)},
		{Name: "MCR", Offset: c.off(ns16550MCR), Value: uint32(c.read(ns16550MCR))},
		{Name: "SCR", Offset: c.off(ns16550SCR), Value: uint32(c.read(ns16550SCR))},
		{Name: "DLL", Offset: c.off(ns16550DLL), Value: uint32(dll)},
		{Name: "DLM", Offset: c.off(ns16550DLM), Value: uint32(dlm)},
	}
}
