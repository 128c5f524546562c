package uartx

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransferError_Is(t *testing.T) {
	err := fmt.Errorf("read: %w", TransferError{Kind: KindOverrun, Data: 0x41, HasData: true})
	if !errors.Is(err, ErrOverrun) {
		t.Fatal("wrapped overrun does not match ErrOverrun")
	}
	if errors.Is(err, ErrParity) {
		t.Fatal("overrun matches ErrParity")
	}
	if !strings.Contains(err.Error(), "0x41") {
		t.Fatalf("message %q lacks captured byte", err)
	}
}

func TestPickError_Priority(t *testing.T) {
	tests := []struct {
		oe, pe, fe, be bool
		want           TransferKind
	}{
		{true, true, true, true, KindOverrun},
		{false, true, true, true, KindParity},
		{false, false, true, true, KindFraming},
		{false, false, false, true, KindBreak},
	}
	for _, tt := range tests {
		err, ok := pickError(tt.oe, tt.pe, tt.fe, tt.be, 0)
		if !ok || err.Kind != tt.want {
			t.Errorf("pickError(%v,%v,%v,%v) = %v; want %v", tt.oe, tt.pe, tt.fe, tt.be, err.Kind, tt.want)
		}
	}
	if _, ok := pickError(false, false, false, false, 0); ok {
		t.Error("pickError with no flags reported an error")
	}
}

func TestConfigError_Messages(t *testing.T) {
	for _, e := range []ConfigError{ErrInvalidBaudrate, ErrUnsupportedDataBits, ErrUnsupportedStopBits,
		ErrUnsupportedParity, ErrRegister, ErrTimeout} {
		if !strings.HasPrefix(e.Error(), "uartx: ") {
			t.Errorf("message %q lacks package prefix", e.Error())
		}
	}
}

func TestMismatchError_Message(t *testing.T) {
	err := &MismatchError{Handle: "receiver", Device: 0x1000, Issued: 0x2000}
	want := "uartx: receiver issued for register base 0x2000 cannot be returned to device at 0x1000"
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}
}
