//go:build rp2040 || rp2350

package uartx

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"unsafe"

	"github.com/jangala-dev/uartcore/mmio"
)

const rp2UARTWindow = 0x1000

// UART on the RP2040/RP2350. Both are PL011 r1.5 with 32-entry FIFOs,
// clocked from clk_peri.
var (
	UART0 = NewPL011(mmio.NewWindow(uintptr(unsafe.Pointer(rp.UART0)), rp2UARTWindow),
		machine.CPUFrequency(), WithFIFODepth(32))
	UART1 = NewPL011(mmio.NewWindow(uintptr(unsafe.Pointer(rp.UART1)), rp2UARTWindow),
		machine.CPUFrequency(), WithFIFODepth(32))

	uart0IRQ, uart1IRQ *IrqHandler
	uart0Int, uart1Int interrupt.Interrupt
)

// The IrqHandlers of UART0 and UART1 are taken here and stay with the
// interrupt controller.
func init() {
	uart0IRQ, _ = UART0.TakeIrqHandler()
	uart1IRQ, _ = UART1.TakeIrqHandler()
	uart0Int = interrupt.New(rp.IRQ_UART0_IRQ, func(interrupt.Interrupt) { uart0IRQ.Handle() })
	uart1Int = interrupt.New(rp.IRQ_UART1_IRQ, func(interrupt.Interrupt) { uart1IRQ.Handle() })
}

// SetupRP2 resets the peripheral behind d, muxes tx and rx to it, opens and
// configures it, and enables its receive interrupt. A zero cfg means
// 115200 8N1; NoPin for both pins selects the board defaults.
func SetupRP2(d *Device, tx, rx machine.Pin, cfg Config) error {
	var resetVal uint32
	var intr interrupt.Interrupt
	switch d {
	case UART0:
		resetVal, intr = rp.RESETS_RESET_UART0, uart0Int
	case UART1:
		resetVal, intr = rp.RESETS_RESET_UART1, uart1Int
	default:
		return ErrRegister
	}

	rp.RESETS.RESET.SetBits(resetVal)
	rp.RESETS.RESET.ClearBits(resetVal)
	for !rp.RESETS.RESET_DONE.HasBits(resetVal) {
	}

	if tx == machine.NoPin && rx == machine.NoPin {
		tx, rx = machine.UART_TX_PIN, machine.UART_RX_PIN
	}
	if tx != machine.NoPin {
		tx.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
	if rx != machine.NoPin {
		rx.Configure(machine.PinConfig{Mode: machine.PinUART})
	}

	if cfg == (Config{}) {
		cfg = Config{BaudRate: 115200, DataBits: DataBitsEight, StopBits: StopBitsOne, Parity: ParityNone}
	}
	d.Open()
	if err := d.Configure(cfg); err != nil {
		return err
	}

	intr.SetPriority(0x80)
	intr.Enable()
	d.EnableInterrupts(CauseReceiveReady)
	return nil
}
