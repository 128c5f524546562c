package uartx

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jangala-dev/uartcore/internal/sim"
)

const (
	testClock       = 24000000
	testPL011Base   = 0x09000000
	testNS16550Base = 0x10000000
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPL011 returns an opened PL011 Device over a fresh simulator.
func newTestPL011(t *testing.T, opts ...Option) (*Device, *sim.PL011) {
	t.Helper()
	hw := sim.NewPL011(testPL011Base, 16)
	d := NewPL011(hw, testClock, append([]Option{WithLogger(quietLogger())}, opts...)...)
	d.Open()
	return d, hw
}

// newTestNS16550 returns an opened NS16550 Device over a fresh simulator
// with 4-byte register stride.
func newTestNS16550(t *testing.T, opts ...Option) (*Device, *sim.NS16550) {
	t.Helper()
	hw := sim.NewNS16550(testNS16550Base, 2)
	d := NewNS16550(hw, testClock, append([]Option{WithLogger(quietLogger())}, opts...)...)
	d.Open()
	return d, hw
}

type testChip struct {
	name string
	new  func(t *testing.T, opts ...Option) (*Device, sim.Port)
}

// bothChips runs the same contract test against each register layout.
var bothChips = []testChip{
	{"pl011", func(t *testing.T, opts ...Option) (*Device, sim.Port) { return newTestPL011(t, opts...) }},
	{"ns16550", func(t *testing.T, opts ...Option) (*Device, sim.Port) { return newTestNS16550(t, opts...) }},
}
