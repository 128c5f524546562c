package uartx

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestReceiver returns an NS16550 Device with receive interrupts enabled
// and its Receiver and IrqHandler taken.
func newTestReceiver(t *testing.T) (*Receiver, *IrqHandler, func(...byte)) {
	t.Helper()
	d, hw := newTestNS16550(t)
	rx, _ := d.TakeReceiver()
	irq, _ := d.TakeIrqHandler()
	d.EnableInterrupts(CauseReceiveReady)
	arrive := func(p ...byte) {
		hw.Receive(p...)
		for hw.IRQ() {
			irq.Handle()
		}
	}
	return rx, irq, arrive
}

func TestRead_NonBlockingSemantics(t *testing.T) {
	rx, _, arrive := newTestReceiver(t)
	buf := make([]byte, 8)

	if n, err := rx.Read(buf); err != nil || n != 0 {
		t.Fatalf("Read on empty: n=%d err=%v; want 0,nil", n, err)
	}

	arrive('A', 'B', 'C')

	n, err := rx.Read(buf)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 3 || string(buf[:n]) != "ABC" {
		t.Fatalf("got n=%d data=%q; want 3, \"ABC\"", n, string(buf[:n]))
	}

	if n, _ := rx.Read(buf); n != 0 {
		t.Fatalf("expected empty after drain, got n=%d", n)
	}
}

func TestRecvByteContext_UnblocksOnInterrupt(t *testing.T) {
	rx, _, arrive := newTestReceiver(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var got byte
	var err error

	go func() {
		defer close(done)
		got, err = rx.RecvByteContext(ctx)
	}()

	time.Sleep(20 * time.Millisecond)

	arrive('Z')

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for RecvByteContext")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 'Z' {
		t.Fatalf("got %q want %q", got, 'Z')
	}
}

func TestRecvSomeContext_ReadsSomeBytes(t *testing.T) {
	rx, _, arrive := newTestReceiver(t)

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	buf := make([]byte, 8)
	done := make(chan struct{})
	var n int
	var err error

	go func() {
		defer close(done)
		n, err = rx.RecvSomeContext(ctx, buf)
	}()

	time.Sleep(10 * time.Millisecond)

	arrive('x', 'y', 'z')

	select {
	case <-done:
	case <-time.After(400 * time.Millisecond):
		t.Fatal("timeout waiting for RecvSomeContext")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n <= 0 || string(buf[:n]) != "xyz"[:n] {
		t.Fatalf("unexpected data: n=%d data=%q", n, string(buf[:n]))
	}
}

func TestRecvByteContext_ReturnsLineError(t *testing.T) {
	rx, _, _ := newTestReceiver(t)
	rx.dev.rx.latched.raise(ErrFraming)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := rx.RecvByteContext(ctx); !errors.Is(err, ErrFraming) {
		t.Fatalf("err=%v; want framing", err)
	}
}

func TestWaitReadable_RespectsDeadline(t *testing.T) {
	rx, _, _ := newTestReceiver(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- rx.WaitReadable(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err=%v; want deadline exceeded", err)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for WaitReadable to return after deadline")
	}
}

func TestWaitReadable_ReturnedHandle(t *testing.T) {
	rx, _, _ := newTestReceiver(t)
	if err := rx.Release(); err != nil {
		t.Fatal(err)
	}
	if err := rx.WaitReadable(context.Background()); err != ErrHandleReturned {
		t.Fatalf("err=%v; want ErrHandleReturned", err)
	}
}

func TestNonBlockingReadAfterMultipleNotifies(t *testing.T) {
	rx, irq, _ := newTestReceiver(t)
	irq.Handle()
	irq.Handle()
	irq.Handle() // no data
	select {
	case <-rx.Readable():
		t.Fatal("Readable fired with nothing received")
	default:
	}
	if n, err := rx.Read(make([]byte, 4)); err != nil || n != 0 {
		t.Fatalf("Read on empty after handles: n=%d err=%v", n, err)
	}
}

func TestReadable_Coalesces(t *testing.T) {
	rx, _, arrive := newTestReceiver(t)
	arrive('a')
	arrive('b')
	arrive('c')
	select {
	case <-rx.Readable():
	default:
		t.Fatal("Readable not signalled")
	}
	select {
	case <-rx.Readable():
		t.Fatal("Readable signalled twice")
	default:
	}
}

func TestSendSomeContext_WaitsForTransmitEmpty(t *testing.T) {
	d, hw := newTestPL011(t)
	tx, _ := d.TakeSender()
	irq, _ := d.TakeIrqHandler()
	d.EnableInterrupts(CauseTransmitEmpty)
	hw.HoldTxFull(true)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var n int
	var err error
	go func() {
		defer close(done)
		n, err = tx.SendSomeContext(ctx, []byte("go"))
	}()

	time.Sleep(10 * time.Millisecond)
	hw.HoldTxFull(false)
	d.SendByte('>') // raises the transmit interrupt
	irq.Handle()

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for SendSomeContext")
	}
	if err != nil || n != 2 {
		t.Fatalf("SendSomeContext = %d, %v", n, err)
	}
	if out := hw.Transmitted(); string(out) != ">go" && string(out) != "go>" {
		t.Fatalf("line got %q", out)
	}
}
