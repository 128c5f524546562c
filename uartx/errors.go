package uartx

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferEmpty is returned by ReadByte when no data is available.
	ErrBufferEmpty = errors.New("UART buffer empty")

	// ErrHandleReturned is returned when a handle is used or given back after
	// it has already been returned to its Device.
	ErrHandleReturned = errors.New("uartx: handle already returned")
)

// ConfigError is a configuration-time failure. Configure returns one of the
// ConfigError values below.
type ConfigError uint8

const (
	ErrInvalidBaudrate ConfigError = iota + 1
	ErrUnsupportedDataBits
	ErrUnsupportedStopBits
	ErrUnsupportedParity
	ErrRegister
	ErrTimeout
)

func (e ConfigError) Error() string {
	switch e {
	case ErrInvalidBaudrate:
		return "uartx: invalid baud rate"
	case ErrUnsupportedDataBits:
		return "uartx: unsupported data bits"
	case ErrUnsupportedStopBits:
		return "uartx: unsupported stop bits"
	case ErrUnsupportedParity:
		return "uartx: unsupported parity"
	case ErrRegister:
		return "uartx: register access error"
	case ErrTimeout:
		return "uartx: timeout waiting for transmitter idle"
	default:
		return "uartx: configuration error"
	}
}

// TransferKind identifies a receive-path line error.
type TransferKind uint8

// Line errors in decreasing priority.
const (
	KindOverrun TransferKind = iota + 1
	KindParity
	KindFraming
	KindBreak
)

func (k TransferKind) String() string {
	switch k {
	case KindOverrun:
		return "overrun"
	case KindParity:
		return "parity"
	case KindFraming:
		return "framing"
	case KindBreak:
		return "break"
	default:
		return "unknown"
	}
}

// TransferError is a receive-path line error. An overrun may carry the byte
// that was captured when it was detected.
type TransferError struct {
	Kind    TransferKind
	Data    byte
	HasData bool
}

// Sentinel transfer errors, for use with errors.Is.
var (
	ErrOverrun = TransferError{Kind: KindOverrun}
	ErrParity  = TransferError{Kind: KindParity}
	ErrFraming = TransferError{Kind: KindFraming}
	ErrBreak   = TransferError{Kind: KindBreak}
)

func (e TransferError) Error() string {
	if e.HasData {
		return fmt.Sprintf("uartx: %s error (data 0x%02x)", e.Kind, e.Data)
	}
	return "uartx: " + e.Kind.String() + " error"
}

// Is matches any TransferError of the same kind.
func (e TransferError) Is(target error) bool {
	t, ok := target.(TransferError)
	return ok && t.Kind == e.Kind
}

// pickError selects a single error from simultaneously latched conditions:
// overrun, then parity, then framing, then break.
func pickError(oe, pe, fe, be bool, data byte) (TransferError, bool) {
	switch {
	case oe:
		return TransferError{Kind: KindOverrun, Data: data, HasData: true}, true
	case pe:
		return ErrParity, true
	case fe:
		return ErrFraming, true
	case be:
		return ErrBreak, true
	}
	return TransferError{}, false
}

// MismatchError is returned by GiveBack when a handle was issued for a
// different register block than the Device it is returned to.
type MismatchError struct {
	Handle string  // handle kind
	Device uintptr // register base of the Device
	Issued uintptr // register base recorded in the handle
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("uartx: %s issued for register base 0x%x cannot be returned to device at 0x%x",
		e.Handle, e.Issued, e.Device)
}
