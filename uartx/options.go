package uartx

import "log/slog"

// DefaultBusyWaitLimit is the number of status polls Configure makes while
// waiting for the transmitter to go idle before giving up with ErrTimeout.
const DefaultBusyWaitLimit = 100000

type options struct {
	busyWait   int
	fifoDepth  uint8
	regShift   uint8
	regIOWidth uint8
	logger     *slog.Logger
}

// Option customises a Device at construction.
type Option func(*options)

// WithBusyWaitLimit caps the idle wait inside Configure at n status polls.
func WithBusyWaitLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.busyWait = n
		}
	}
}

// WithFIFODepth sets the PL011 FIFO depth used to place the trigger tiers:
// 16 for PL011 r1.4 and earlier, 32 for r1.5 and the RP2040/RP2350.
func WithFIFODepth(depth uint8) Option {
	return func(o *options) {
		if depth != 0 {
			o.fifoDepth = depth
		}
	}
}

// WithRegShift sets the NS16550 register stride to 1<<shift bytes.
func WithRegShift(shift uint8) Option {
	return func(o *options) { o.regShift = shift }
}

// WithRegIOWidth sets the NS16550 register access width: 1 or 4 bytes.
func WithRegIOWidth(width uint8) Option {
	return func(o *options) {
		if width == 1 || width == 4 {
			o.regIOWidth = width
		}
	}
}

// WithLogger makes the Device log to l instead of DefaultLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func defaultOptions() options {
	return options{
		busyWait:   DefaultBusyWaitLimit,
		fifoDepth:  16,
		regShift:   2,
		regIOWidth: 1,
	}
}
