package main

import (
	"fmt"

	"github.com/jangala-dev/uartcore/internal/sim"
	"github.com/jangala-dev/uartcore/mmio"
	"github.com/jangala-dev/uartcore/uartx"
)

// regWindow is the size of register space mapped for either chip.
const regWindow = 0x1000

// mappedPort is a register window that must be released when done.
type mappedPort interface {
	mmio.Port
	Close() error
}

// target is an opened UART and what it needs to be torn down.
type target struct {
	dev   *uartx.Device
	sim   sim.Port // nil on hardware
	close func() error
}

// pending reports whether the interrupt output is asserted. Hardware
// targets have no line to sample, so they always report true and rely on
// Handle returning an empty set when nothing is pending.
func (t *target) pending() bool {
	if t.sim == nil {
		return true
	}
	return t.sim.IRQ()
}

func openTarget() (*target, error) {
	base, err := parseBase(rootOpts.base)
	if err != nil {
		return nil, err
	}

	var port mmio.Port
	t := &target{close: func() error { return nil }}
	if rootOpts.sim {
		switch rootOpts.chip {
		case "pl011":
			t.sim = sim.NewPL011(base, int(rootOpts.fifo))
		case "ns16550":
			t.sim = sim.NewNS16550(base, rootOpts.regShift)
		default:
			return nil, fmt.Errorf("uartctl: unknown chip %q", rootOpts.chip)
		}
		port = t.sim
	} else {
		m, err := mapRegisters(rootOpts.mem, base, regWindow)
		if err != nil {
			return nil, err
		}
		port, t.close = m, m.Close
	}

	clock := rootOpts.clock
	switch rootOpts.chip {
	case "pl011":
		if clock == 0 {
			clock = uartx.EstimatePL011Clock(port)
		}
		t.dev = uartx.NewPL011(port, clock, uartx.WithFIFODepth(rootOpts.fifo))
	case "ns16550":
		t.dev = uartx.NewNS16550(port, clock,
			uartx.WithRegShift(rootOpts.regShift), uartx.WithRegIOWidth(rootOpts.regWidth))
	default:
		t.close()
		return nil, fmt.Errorf("uartctl: unknown chip %q", rootOpts.chip)
	}
	return t, nil
}

// openConfigured opens the target and applies the line flags.
func openConfigured() (*target, error) {
	t, err := openTarget()
	if err != nil {
		return nil, err
	}
	cfg, err := lineConfig()
	if err == nil {
		t.dev.Open()
		err = t.dev.Configure(cfg)
	}
	if err != nil {
		t.close()
		return nil, fmt.Errorf("uartctl: configure: %w", err)
	}
	return t, nil
}
