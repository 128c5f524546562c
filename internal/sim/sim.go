// Package sim provides behavioural register models of the PL011 and NS16550
// UARTs. Both implement mmio.Port, so a uartx.Device can drive them exactly
// as it drives hardware. Transmission is instantaneous: a byte written to
// the transmitter is either captured (see Transmitted) or, in loopback, fed
// straight to the receiver.
//
// The models are safe for concurrent use; tests exercise a Device from a
// main goroutine and a simulated interrupt goroutine at the same time.
package sim

// Port is the register access surface shared by both models.
type Port interface {
	Base() uintptr
	Load8(off uintptr) uint8
	Store8(off uintptr, v uint8)
	Load32(off uintptr) uint32
	Store32(off uintptr, v uint32)
	Barrier()

	// Receive queues bytes as if they arrived on the line.
	Receive(p ...byte)
	// Transmitted returns and clears the bytes sent while not in loopback.
	Transmitted() []byte
	// IRQ reports whether the interrupt output is asserted.
	IRQ() bool
	// Writes returns the number of register stores so far.
	Writes() int
	// HoldBusy keeps the transmitter busy for the next n status polls;
	// a negative n holds it busy until HoldBusy(0).
	HoldBusy(n int)
}

// busy counts down polls of a transmitter-busy flag.
type busy int

func (b *busy) poll() bool {
	switch {
	case *b == 0:
		return false
	case *b > 0:
		*b--
	}
	return true
}
