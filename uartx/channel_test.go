package uartx

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/jangala-dev/uartcore/internal/sim"
)

func TestTake_Exclusive(t *testing.T) {
	d, _ := newTestPL011(t)

	s1, ok := d.TakeSender()
	if !ok || s1 == nil {
		t.Fatal("first TakeSender failed")
	}
	if s2, ok := d.TakeSender(); ok || s2 != nil {
		t.Fatal("second TakeSender succeeded while the first is outstanding")
	}
	r, ok := d.TakeReceiver()
	if !ok {
		t.Fatal("TakeReceiver failed while only a Sender is out")
	}
	irq, ok := d.TakeIrqHandler()
	if !ok {
		t.Fatal("TakeIrqHandler failed")
	}
	if _, ok := d.TakeReceiver(); ok {
		t.Fatal("second TakeReceiver succeeded")
	}
	if _, ok := d.TakeIrqHandler(); ok {
		t.Fatal("second TakeIrqHandler succeeded")
	}

	if err := d.GiveBack(s1); err != nil {
		t.Fatalf("GiveBack: %v", err)
	}
	s3, ok := d.TakeSender()
	if !ok {
		t.Fatal("TakeSender after GiveBack failed")
	}
	if !s3.SendByte('a') {
		t.Fatal("fresh Sender declined")
	}
	if err := r.Release(); err != nil {
		t.Fatalf("Receiver.Release: %v", err)
	}
	if err := irq.Release(); err != nil {
		t.Fatalf("IrqHandler.Release: %v", err)
	}
}

func TestGiveBack_ReturnedHandleIsDead(t *testing.T) {
	d, hw := newTestNS16550(t)
	s, _ := d.TakeSender()
	r, _ := d.TakeReceiver()
	irq, _ := d.TakeIrqHandler()
	for _, h := range []Handle{s, r, irq} {
		if err := d.GiveBack(h); err != nil {
			t.Fatalf("GiveBack(%T): %v", h, err)
		}
		if err := d.GiveBack(h); err != ErrHandleReturned {
			t.Fatalf("second GiveBack(%T) = %v; want ErrHandleReturned", h, err)
		}
	}

	if s.SendByte('x') || s.Send([]byte("xy")) != 0 || s.CanSend() {
		t.Fatal("returned Sender still sends")
	}
	if len(hw.Transmitted()) != 0 {
		t.Fatal("returned Sender reached the line")
	}
	hw.Receive('y')
	if _, err := r.ReadByte(); err != ErrHandleReturned {
		t.Fatalf("returned Receiver ReadByte err=%v", err)
	}
	if _, err := r.Read(make([]byte, 2)); err != ErrHandleReturned {
		t.Fatalf("returned Receiver Read err=%v", err)
	}
	d.EnableInterrupts(CauseReceiveReady)
	if c := irq.Handle(); c != CauseNone {
		t.Fatalf("returned IrqHandler handled %v", c)
	}

	// The slot hands out a fresh, live handle.
	s2, ok := d.TakeSender()
	if !ok || s2 == s {
		t.Fatal("TakeSender did not issue a fresh handle")
	}
}

func TestGiveBack_Mismatch(t *testing.T) {
	a, _ := newTestPL011(t)
	hw := sim.NewPL011(testPL011Base+0x1000, 16)
	b := NewPL011(hw, testClock, WithLogger(quietLogger()))

	sa, _ := a.TakeSender()
	sb, _ := b.TakeSender()

	err := b.GiveBack(sa)
	var me *MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("err=%v; want *MismatchError", err)
	}
	if me.Device != testPL011Base+0x1000 || me.Issued != testPL011Base || me.Handle != "sender" {
		t.Fatalf("mismatch = %+v", me)
	}
	// Neither Device's slot changed.
	if _, ok := b.TakeSender(); ok {
		t.Fatal("mismatched give-back filled the slot")
	}
	if !sa.SendByte('k') {
		t.Fatal("mismatched give-back killed the handle")
	}
	if err := a.GiveBack(sa); err != nil {
		t.Fatalf("GiveBack to issuer: %v", err)
	}
	if err := b.GiveBack(sb); err != nil {
		t.Fatalf("GiveBack to issuer: %v", err)
	}
}

func TestGiveBack_Nil(t *testing.T) {
	d, _ := newTestPL011(t)
	if err := d.GiveBack(nil); err != ErrHandleReturned {
		t.Fatalf("GiveBack(nil) = %v", err)
	}
	var s *Sender
	if err := d.GiveBack(s); err != ErrHandleReturned {
		t.Fatalf("GiveBack(typed nil) = %v", err)
	}
}

func TestSplitOwnership_Loopback(t *testing.T) {
	for _, c := range bothChips {
		t.Run(c.name, func(t *testing.T) {
			d, _ := c.new(t)
			d.EnableLoopback()
			tx, _ := d.TakeSender()
			rx, _ := d.TakeReceiver()

			msg := []byte("split")
			if n := tx.Send(msg); n != len(msg) {
				t.Fatalf("sent %d", n)
			}
			if !rx.CanRead() {
				t.Fatal("CanRead false after loopback send")
			}
			buf := make([]byte, 8)
			n, err := rx.Read(buf)
			if err != nil || string(buf[:n]) != "split" {
				t.Fatalf("Read = %q, %v", buf[:n], err)
			}
		})
	}
}

// An interrupt goroutine stages bytes while a reader drains them. Every byte
// arrives once and in order.
func TestConcurrent_InterruptAndReader(t *testing.T) {
	d, hw := newTestNS16550(t)
	irq, _ := d.TakeIrqHandler()
	rx, _ := d.TakeReceiver()
	d.EnableInterrupts(CauseReceiveReady)

	const total = 4000
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		for i := 0; i < total; i++ {
			for d.Buffered() >= StagingCapacity/2 {
				if err := ctx.Err(); err != nil {
					return err
				}
				runtime.Gosched()
			}
			hw.Receive(byte(i))
			for hw.IRQ() {
				irq.Handle()
			}
		}
		return nil
	})

	g.Go(func() error {
		buf := make([]byte, 16)
		got := 0
		for got < total {
			n, err := rx.Read(buf)
			if err != nil {
				return fmt.Errorf("after %d bytes: %w", got, err)
			}
			for _, b := range buf[:n] {
				if b != byte(got) {
					return fmt.Errorf("byte %d = %d; want %d", got, b, byte(got))
				}
				got++
			}
			if n == 0 {
				runtime.Gosched()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
