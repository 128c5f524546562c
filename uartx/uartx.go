// Package uartx is a hardware-abstraction core for memory-mapped UARTs.
//
// A Device presents one contract (configure the line format, exchange bytes,
// report line errors, report and clear interrupt causes) on top of two
// register layouts: the ARM PL011 and the NS16550 family. All byte transfer
// operations are non-blocking; they act on the current hardware state and
// return immediately. Callers that need to wait do so outside the core, either
// with a bounded spin or with the context helpers on Receiver.
//
// Transmit, receive and interrupt duties can be split between owners by taking
// a Sender, Receiver or IrqHandler from the Device. At most one of each is
// outstanding at a time.
package uartx

// DataBits is the number of data bits per character.
// The zero value leaves the hardware setting unchanged.
type DataBits uint8

const (
	DataBitsFive  DataBits = 5
	DataBitsSix   DataBits = 6
	DataBitsSeven DataBits = 7
	DataBitsEight DataBits = 8
)

func (d DataBits) valid() bool { return d >= DataBitsFive && d <= DataBitsEight }

// StopBits is the number of stop bits per character.
// The zero value leaves the hardware setting unchanged.
type StopBits uint8

const (
	StopBitsOne StopBits = 1
	StopBitsTwo StopBits = 2
)

func (s StopBits) valid() bool { return s == StopBitsOne || s == StopBitsTwo }

// Parity defines the parity setting used for UART communication.
// The zero value leaves the hardware setting unchanged.
type Parity uint8

const (
	// ParityNone disables parity generation and checking (the most common setting).
	ParityNone Parity = iota + 1
	// ParityEven sets even parity (total number of 1 bits is even).
	ParityEven
	// ParityOdd sets odd parity (total number of 1 bits is odd).
	ParityOdd
	// ParityMark transmits the parity bit as a constant 1.
	ParityMark
	// ParitySpace transmits the parity bit as a constant 0.
	ParitySpace
)

func (p Parity) valid() bool { return p >= ParityNone && p <= ParitySpace }

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return "unchanged"
	}
}

// encode returns the parity-enable, even-select and stick-parity bits.
// Both register layouts use the same three-bit scheme.
func (p Parity) encode() (enable, even, stick bool) {
	switch p {
	case ParityOdd:
		return true, false, false
	case ParityEven:
		return true, true, false
	case ParityMark:
		return true, false, true
	case ParitySpace:
		return true, true, true
	default:
		return false, false, false
	}
}

func decodeParity(enable, even, stick bool) Parity {
	switch {
	case !enable:
		return ParityNone
	case stick && even:
		return ParitySpace
	case stick:
		return ParityMark
	case even:
		return ParityEven
	default:
		return ParityOdd
	}
}

// Config is a set of independently optional line settings. Fields left at
// their zero value are not touched by Configure.
type Config struct {
	BaudRate uint32
	DataBits DataBits
	StopBits StopBits
	Parity   Parity
}

func (c Config) hasFormat() bool {
	return c.DataBits != 0 || c.StopBits != 0 || c.Parity != 0
}

// Format is a complete character frame description.
type Format struct {
	DataBits DataBits
	StopBits StopBits
	Parity   Parity
}

// merge fills the fields of cfg that are unset from the current frame.
func (f Format) merge(cfg Config) Format {
	if cfg.DataBits != 0 {
		f.DataBits = cfg.DataBits
	}
	if cfg.StopBits != 0 {
		f.StopBits = cfg.StopBits
	}
	if cfg.Parity != 0 {
		f.Parity = cfg.Parity
	}
	return f
}

// supported reports whether the frame can be programmed and read back
// unchanged. Two stop bits are refused with 8N and with 5-bit characters
// unless parity is even or odd.
func (f Format) supported() bool {
	if f.StopBits != StopBitsTwo {
		return true
	}
	switch f.DataBits {
	case DataBitsEight:
		return f.Parity != ParityNone
	case DataBitsFive:
		return f.Parity == ParityEven || f.Parity == ParityOdd
	}
	return true
}

// LineStatus reports receive and transmit readiness.
type LineStatus uint8

const (
	LineDataReady      LineStatus = 1 << iota // at least one byte can be read
	LineTxHoldingEmpty                        // a byte can be written
	LineTxEmpty                               // transmitter idle and FIFO drained
)

// Has reports whether all bits of m are set in s.
func (s LineStatus) Has(m LineStatus) bool { return s&m == m }

// Register is one entry of a register snapshot.
type Register struct {
	Name   string
	Offset uintptr
	Value  uint32
}
