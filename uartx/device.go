package uartx

import "github.com/jangala-dev/uartcore/mmio"

// divisor is a baud-rate divisor: a 16-bit integer part and, for the PL011,
// a 6-bit fraction in 64ths.
type divisor struct {
	integer  uint16
	fraction uint8
}

// chip is one register-layout family. The set is closed: NewPL011 and
// NewNS16550 are the only implementations.
type chip interface {
	name() string

	init()
	shutdown()

	format() Format
	computeDivisor(baud uint32) (divisor, error)
	currentDivisor() divisor
	baudFromDivisor(div divisor) uint32
	configure(cfg Config, div divisor) error

	sendByte(b byte) bool
	canSend() bool
	readByte() (byte, error)
	canRead() bool
	lineStatus() LineStatus
	clearErrors()
	clearFIFOs(rx, tx bool)
	buffered() int

	classify() Cause
	setInterrupts(c Cause, on bool)
	interruptMask() Cause

	setLoopback(on bool)
	loopback() bool
	enableFIFO(on bool)
	hasFIFO() bool
	setTriggerLevel(level uint8) uint8

	registers() []Register
}

// Device is one UART instance. The register block behind port must stay
// valid for the lifetime of the Device; it is owned by the platform layer.
type Device struct {
	port  mmio.Port
	clock uint32
	opts  options
	chip  chip
	rx    rxState

	open bool

	// last requested baud and its divisor, for nominal read-back
	baud uint32
	div  divisor

	notify   chan struct{} // coalesced receive-ready notifications
	txNotify chan struct{} // coalesced transmit-empty notifications

	sender   slot[Sender]
	receiver slot[Receiver]
	irq      slot[IrqHandler]

	stats Stats
}

func newDevice(port mmio.Port, clockHz uint32, opts []Option) *Device {
	d := &Device{
		port:     port,
		clock:    clockHz,
		opts:     defaultOptions(),
		notify:   make(chan struct{}, 1),
		txNotify: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(&d.opts)
	}
	base := port.Base()
	d.sender.fill(&Sender{handle: handle{dev: d, base: base}})
	d.receiver.fill(&Receiver{handle: handle{dev: d, base: base}})
	d.irq.fill(&IrqHandler{handle: handle{dev: d, base: base}})
	return d
}

// NewPL011 returns a Device for an ARM PL011 whose reference clock
// (UARTCLK) runs at clockHz.
func NewPL011(port mmio.Port, clockHz uint32, opts ...Option) *Device {
	d := newDevice(port, clockHz, opts)
	d.chip = &pl011{port: port, clock: clockHz, opts: &d.opts, stats: &d.stats}
	return d
}

// NewNS16550 returns a Device for an NS16550-compatible UART whose input
// clock runs at clockHz.
func NewNS16550(port mmio.Port, clockHz uint32, opts ...Option) *Device {
	d := newDevice(port, clockHz, opts)
	d.chip = &ns16550{
		port:     port,
		clock:    clockHz,
		rx:       &d.rx,
		stats:    &d.stats,
		shift:    d.opts.regShift,
		width:    d.opts.regIOWidth,
		busyWait: d.opts.busyWait,
		fcr:      ns16550FCRTrigger1,
	}
	return d
}

// Base returns the register base the Device was created for.
func (d *Device) Base() uintptr { return d.port.Base() }

// ClockFrequency returns the reference clock in Hz.
func (d *Device) ClockFrequency() uint32 { return d.clock }

// --- lifecycle ---

// Open brings the UART into a known running state: transmitter and receiver
// enabled, FIFOs on, interrupts masked.
func (d *Device) Open() {
	d.chip.init()
	d.open = true
	d.logInfo(ComponentDevice, "opened", "clock", d.clock)
}

// Close disables the UART. The Device may be opened again.
func (d *Device) Close() {
	d.chip.shutdown()
	d.open = false
	d.logInfo(ComponentDevice, "closed")
}

// IsOpen reports whether Open has been called without a later Close.
func (d *Device) IsOpen() bool { return d.open }

// --- configuration ---

// Configure applies the fields of cfg that are set. Every field is validated
// and the baud divisor computed before the first register write, so a
// rejected configuration leaves the hardware untouched.
//
// The UART is disabled while it is reprogrammed and its previous enable
// state is restored afterwards. If the transmitter does not go idle within
// the busy-wait limit, Configure returns ErrTimeout without changing the line
// settings.
func (d *Device) Configure(cfg Config) error {
	var div divisor
	if cfg.BaudRate != 0 {
		var err error
		div, err = d.chip.computeDivisor(cfg.BaudRate)
		if err != nil {
			d.logWarn(ComponentConfig, "rejected baud rate", "baud", cfg.BaudRate, "err", err)
			return err
		}
	}
	if cfg.DataBits != 0 && !cfg.DataBits.valid() {
		return ErrUnsupportedDataBits
	}
	if cfg.StopBits != 0 && !cfg.StopBits.valid() {
		return ErrUnsupportedStopBits
	}
	if cfg.Parity != 0 && !cfg.Parity.valid() {
		return ErrUnsupportedParity
	}
	if cfg.hasFormat() {
		if f := d.chip.format().merge(cfg); !f.supported() {
			d.logWarn(ComponentConfig, "rejected frame format",
				"data", f.DataBits, "stop", f.StopBits, "parity", f.Parity.String())
			return ErrUnsupportedStopBits
		}
	}

	if err := d.chip.configure(cfg, div); err != nil {
		if err == ErrTimeout {
			d.stats.busyTimeout()
		}
		d.logWarn(ComponentConfig, "configuration failed", "err", err)
		return err
	}
	if cfg.BaudRate != 0 {
		d.baud, d.div = cfg.BaudRate, div
	}
	d.logDebug(ComponentConfig, "configuration applied",
		"baud", cfg.BaudRate, "data", cfg.DataBits, "stop", cfg.StopBits, "parity", cfg.Parity.String())
	return nil
}

// BaudRate returns the nominal baud rate: the last rate passed to Configure
// while the hardware still holds its divisor, or ActualBaudRate otherwise.
func (d *Device) BaudRate() uint32 {
	cur := d.chip.currentDivisor()
	if d.baud != 0 && cur == d.div {
		return d.baud
	}
	return d.chip.baudFromDivisor(cur)
}

// ActualBaudRate returns the rate the programmed divisor produces.
func (d *Device) ActualBaudRate() uint32 {
	return d.chip.baudFromDivisor(d.chip.currentDivisor())
}

// Format returns the programmed character frame.
func (d *Device) Format() Format { return d.chip.format() }

// DataBits returns the programmed number of data bits.
func (d *Device) DataBits() DataBits { return d.chip.format().DataBits }

// StopBits returns the programmed number of stop bits.
func (d *Device) StopBits() StopBits { return d.chip.format().StopBits }

// Parity returns the programmed parity.
func (d *Device) Parity() Parity { return d.chip.format().Parity }

// --- transfer ---

// SendByte writes b if the transmitter can accept it and reports whether it
// did. It never waits.
func (d *Device) SendByte(b byte) bool { return d.chip.sendByte(b) }

// Send writes bytes from p while the transmitter accepts them and returns
// the number written. It stops at the first refusal.
func (d *Device) Send(p []byte) int { return send(d.chip, p) }

// ReadByte returns the next received byte, a TransferError if a line error
// is pending, or ErrBufferEmpty if nothing has arrived.
func (d *Device) ReadByte() (byte, error) { return d.chip.readByte() }

// Read fills p with available bytes. It stops at the first empty condition
// and returns the count read so far, or at the first line error, returning
// it alongside the count. A line error that is latched but not reached
// before p is full is returned by the next read.
func (d *Device) Read(p []byte) (int, error) { return read(d.chip, p) }

// Buffered returns the number of bytes staged in software.
func (d *Device) Buffered() int { return d.chip.buffered() }

// LineStatus returns receive and transmit readiness.
func (d *Device) LineStatus() LineStatus { return d.chip.lineStatus() }

// ClearErrors drops any latched line error and clears the hardware's sticky
// error flags.
func (d *Device) ClearErrors() { d.chip.clearErrors() }

// ClearReceiveFIFO discards received data in hardware and in the staging buffer.
func (d *Device) ClearReceiveFIFO() { d.chip.clearFIFOs(true, false) }

// ClearTransmitFIFO discards data queued for transmission.
func (d *Device) ClearTransmitFIFO() { d.chip.clearFIFOs(false, true) }

func send(c chip, p []byte) int {
	n := 0
	for n < len(p) && c.sendByte(p[n]) {
		n++
	}
	return n
}

func read(c chip, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := c.readByte()
		if err == ErrBufferEmpty {
			break
		}
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

// --- loopback and FIFO ---

// EnableLoopback routes transmitted data to the receiver internally.
func (d *Device) EnableLoopback() { d.chip.setLoopback(true) }

// DisableLoopback restores normal external routing.
func (d *Device) DisableLoopback() { d.chip.setLoopback(false) }

// IsLoopbackEnabled reads the loopback control bit back.
func (d *Device) IsLoopbackEnabled() bool { return d.chip.loopback() }

// EnableFIFO turns the hardware FIFOs on or off.
func (d *Device) EnableFIFO(on bool) { d.chip.enableFIFO(on) }

// HasFIFO reports whether the UART has working FIFOs.
func (d *Device) HasFIFO() bool { return d.chip.hasFIFO() }

// SetFIFOTriggerLevel selects the hardware trigger tier for a requested
// depth in bytes and returns the depth of the selected tier. On the PL011 it
// is the deepest tier not above level, or the shallowest if level is below
// all of them. The NS16550 maps 0-3 to 1, 4-7 to 4, 8-11 to 8 and 12 or more
// to 14.
func (d *Device) SetFIFOTriggerLevel(level uint8) uint8 { return d.chip.setTriggerLevel(level) }

// pickTier returns the index of the last threshold not above level.
// thresholds must be ascending.
func pickTier(level uint8, thresholds []uint8) int {
	i := 0
	for j, t := range thresholds {
		if level >= t {
			i = j
		}
	}
	return i
}

// --- interrupts ---

// EnableInterrupts unmasks the native interrupts behind causes.
func (d *Device) EnableInterrupts(causes Cause) { d.chip.setInterrupts(causes, true) }

// DisableInterrupts masks the native interrupts behind causes.
func (d *Device) DisableInterrupts(causes Cause) { d.chip.setInterrupts(causes, false) }

// InterruptMask returns the causes currently enabled.
func (d *Device) InterruptMask() Cause { return d.chip.interruptMask() }

// handleInterrupt classifies and clears the pending interrupt and posts
// coalesced wake-ups. It is the body of IrqHandler.Handle.
func (d *Device) handleInterrupt() Cause {
	c := d.chip.classify()
	d.stats.isr(c)
	if c&CauseReceiveReady != 0 {
		select {
		case d.notify <- struct{}{}:
			d.stats.notify(true)
		default:
			d.stats.notify(false)
		}
	}
	if c&CauseTransmitEmpty != 0 {
		select {
		case d.txNotify <- struct{}{}:
		default:
		}
	}
	return c
}

// --- diagnostics ---

// Registers returns a snapshot of the registers that can be read without
// side effects.
func (d *Device) Registers() []Register { return d.chip.registers() }
