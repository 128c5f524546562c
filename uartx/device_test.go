package uartx

import (
	"errors"
	"testing"

	"github.com/jangala-dev/uartcore/internal/sim"
)

func TestConfigure_FormatRoundTrip(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, hw := c.new(t)
			for db := DataBitsFive; db <= DataBitsEight; db++ {
				for _, sb := range []StopBits{StopBitsOne, StopBitsTwo} {
					for p := ParityNone; p <= ParitySpace; p++ {
						cfg := Config{DataBits: db, StopBits: sb, Parity: p}
						excluded := sb == StopBitsTwo &&
							((db == DataBitsEight && p == ParityNone) ||
								(db == DataBitsFive && p != ParityEven && p != ParityOdd))

						before := hw.Writes()
						err := d.Configure(cfg)
						if excluded {
							if err != ErrUnsupportedStopBits {
								t.Fatalf("%d%s%d: err=%v want ErrUnsupportedStopBits", db, p, sb, err)
							}
							if hw.Writes() != before {
								t.Fatalf("%d%s%d: rejected config wrote %d registers", db, p, sb, hw.Writes()-before)
							}
							continue
						}
						if err != nil {
							t.Fatalf("%d%s%d: unexpected err: %v", db, p, sb, err)
						}
						if d.DataBits() != db || d.StopBits() != sb || d.Parity() != p {
							t.Fatalf("readback %d%s%d; want %d%s%d",
								d.DataBits(), d.Parity(), d.StopBits(), db, p, sb)
						}
					}
				}
			}
		})
	}
}

func TestConfigure_PartialKeepsOtherFields(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, _ := c.new(t)
			if err := d.Configure(Config{BaudRate: 115200, DataBits: DataBitsSeven, StopBits: StopBitsOne, Parity: ParityEven}); err != nil {
				t.Fatal(err)
			}
			if err := d.Configure(Config{StopBits: StopBitsTwo}); err != nil {
				t.Fatal(err)
			}
			f := d.Format()
			if f != (Format{DataBits: DataBitsSeven, StopBits: StopBitsTwo, Parity: ParityEven}) {
				t.Fatalf("format after partial configure = %+v", f)
			}
			if d.BaudRate() != 115200 {
				t.Fatalf("baud changed to %d", d.BaudRate())
			}
		})
	}
}

func TestConfigure_MergedFormatChecked(t *testing.T) {
	d, hw := newTestNS16550(t)
	if err := d.Configure(Config{DataBits: DataBitsEight, StopBits: StopBitsOne, Parity: ParityNone}); err != nil {
		t.Fatal(err)
	}
	before := hw.Writes()
	if err := d.Configure(Config{StopBits: StopBitsTwo}); err != ErrUnsupportedStopBits {
		t.Fatalf("8N + 2 stop: err=%v want ErrUnsupportedStopBits", err)
	}
	if hw.Writes() != before {
		t.Fatal("rejected config touched registers")
	}
}

func TestConfigure_InvalidFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"baud too high", Config{BaudRate: testClock}, ErrInvalidBaudrate},
		{"baud too low", Config{BaudRate: 1}, ErrInvalidBaudrate},
		{"data bits", Config{DataBits: 9}, ErrUnsupportedDataBits},
		{"stop bits", Config{StopBits: 3}, ErrUnsupportedStopBits},
		{"parity", Config{Parity: 9}, ErrUnsupportedParity},
		{"bad parity with good baud", Config{BaudRate: 9600, Parity: 9}, ErrUnsupportedParity},
	}
	for _, c := range bothChips {
		for _, tt := range tests {
			t.Run(c.name+"/"+tt.name, func(t *testing.T) {
				d, hw := c.new(t)
				before := hw.Writes()
				err := d.Configure(tt.cfg)
				if !errors.Is(err, tt.want) {
					t.Fatalf("err=%v want %v", err, tt.want)
				}
				if hw.Writes() != before {
					t.Fatal("rejected config touched registers")
				}
			})
		}
	}
}

func TestConfigure_ZeroClock(t *testing.T) {
	hw := sim.NewPL011(testPL011Base, 16)
	d := NewPL011(hw, 0, WithLogger(quietLogger()))
	if err := d.Configure(Config{BaudRate: 9600}); err != ErrInvalidBaudrate {
		t.Fatalf("err=%v want ErrInvalidBaudrate", err)
	}
}

func TestConfigure_BusyTimeout(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, hw := c.new(t, WithBusyWaitLimit(50))
			if err := d.Configure(Config{BaudRate: 9600, DataBits: DataBitsEight, StopBits: StopBitsOne, Parity: ParityNone}); err != nil {
				t.Fatal(err)
			}
			hw.HoldBusy(-1)
			err := d.Configure(Config{BaudRate: 115200, DataBits: DataBitsSeven})
			if err != ErrTimeout {
				t.Fatalf("err=%v want ErrTimeout", err)
			}
			hw.HoldBusy(0)
			if d.BaudRate() != 9600 || d.DataBits() != DataBitsEight {
				t.Fatalf("timed-out configure changed line settings: %d baud, %d bits", d.BaudRate(), d.DataBits())
			}
			// The UART is still usable: the enable state was restored.
			if !d.SendByte('x') {
				t.Fatal("transmitter not re-enabled after timeout")
			}
		})
	}
}

func TestPickTier(t *testing.T) {
	tiers := []uint8{2, 4, 8, 12, 14}
	tests := []struct {
		level uint8
		want  int
	}{
		{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 1}, {7, 1}, {8, 2}, {10, 2},
		{12, 3}, {13, 3}, {14, 4}, {255, 4},
	}
	for _, tt := range tests {
		if got := pickTier(tt.level, tiers); got != tt.want {
			t.Errorf("pickTier(%d) = %d; want %d", tt.level, got, tt.want)
		}
	}
}

func TestLoopback_Hello(t *testing.T) {
	msg := []byte("Hello, Loopback!")
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, hw := c.new(t)
			if err := d.Configure(Config{BaudRate: 115200, DataBits: DataBitsEight, StopBits: StopBitsOne, Parity: ParityNone}); err != nil {
				t.Fatal(err)
			}
			d.EnableLoopback()
			if !d.IsLoopbackEnabled() {
				t.Fatal("loopback not reported enabled")
			}
			if n := d.Send(msg); n != len(msg) {
				t.Fatalf("sent %d of %d", n, len(msg))
			}
			got := make([]byte, 0, len(msg))
			for i := 0; i < 1000 && len(got) < len(msg); i++ {
				b, err := d.ReadByte()
				if err == ErrBufferEmpty {
					continue
				}
				if err != nil {
					t.Fatalf("ReadByte: %v", err)
				}
				got = append(got, b)
			}
			if string(got) != string(msg) {
				t.Fatalf("got %q want %q", got, msg)
			}
			if out := hw.Transmitted(); len(out) != 0 {
				t.Fatalf("loopback leaked %q to the line", out)
			}

			d.DisableLoopback()
			if d.IsLoopbackEnabled() {
				t.Fatal("loopback still enabled")
			}
			d.SendByte('!')
			if out := hw.Transmitted(); string(out) != "!" {
				t.Fatalf("line got %q want %q", out, "!")
			}
		})
	}
}

func TestRead_StopsAtEmpty(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, hw := c.new(t)
			buf := make([]byte, 8)
			if n, err := d.Read(buf); n != 0 || err != nil {
				t.Fatalf("Read on empty: n=%d err=%v; want 0,nil", n, err)
			}
			if _, err := d.ReadByte(); err != ErrBufferEmpty {
				t.Fatalf("ReadByte on empty: err=%v want ErrBufferEmpty", err)
			}
			hw.Receive('A', 'B', 'C')
			n, err := d.Read(buf)
			if err != nil || n != 3 || string(buf[:n]) != "ABC" {
				t.Fatalf("got n=%d data=%q err=%v; want 3, \"ABC\"", n, buf[:n], err)
			}
		})
	}
}

func TestLifecycle(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, _ := c.new(t)
			if !d.IsOpen() {
				t.Fatal("not open after Open")
			}
			d.EnableInterrupts(CauseReceiveReady)
			d.Close()
			if d.IsOpen() {
				t.Fatal("open after Close")
			}
			if d.InterruptMask() != CauseNone {
				t.Fatalf("interrupts left enabled after Close: %v", d.InterruptMask())
			}
			d.Open()
			if !d.IsOpen() {
				t.Fatal("not open after reopen")
			}
		})
	}
}

func TestInterruptMask_ReadModifyWrite(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, _ := c.new(t)
			if d.InterruptMask() != CauseNone {
				t.Fatalf("mask after Open = %v", d.InterruptMask())
			}
			d.EnableInterrupts(CauseReceiveReady)
			d.EnableInterrupts(CauseTransmitEmpty)
			if d.InterruptMask() != CauseAll {
				t.Fatalf("mask = %v want rx|tx", d.InterruptMask())
			}
			d.DisableInterrupts(CauseReceiveReady)
			if d.InterruptMask() != CauseTransmitEmpty {
				t.Fatalf("mask = %v want tx", d.InterruptMask())
			}
		})
	}
}

func TestLineStatus(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, hw := c.new(t)
			s := d.LineStatus()
			if s.Has(LineDataReady) || !s.Has(LineTxHoldingEmpty|LineTxEmpty) {
				t.Fatalf("idle status = %03b", s)
			}
			hw.Receive('q')
			if !d.LineStatus().Has(LineDataReady) {
				t.Fatal("DataReady not reported")
			}
			d.ClearReceiveFIFO()
			if d.LineStatus().Has(LineDataReady) {
				t.Fatal("DataReady after ClearReceiveFIFO")
			}
		})
	}
}
