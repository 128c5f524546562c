package uartx

import (
	"errors"
	"testing"
)

func TestRingBuffer_FIFO(t *testing.T) {
	var rb RingBuffer
	if _, ok := rb.Get(); ok {
		t.Fatal("Get on empty succeeded")
	}
	for i := 0; i < StagingCapacity; i++ {
		if !rb.Put(byte(i)) {
			t.Fatalf("Put %d refused", i)
		}
	}
	if rb.Put(0xff) {
		t.Fatal("Put on full succeeded")
	}
	if rb.Used() != StagingCapacity {
		t.Fatalf("Used = %d", rb.Used())
	}
	for i := 0; i < StagingCapacity; i++ {
		b, ok := rb.Get()
		if !ok || b != byte(i) {
			t.Fatalf("Get %d = %d, %v", i, b, ok)
		}
	}
}

func TestRingBuffer_Wraps(t *testing.T) {
	var rb RingBuffer
	// Cycle the uint8 indices through several wraps.
	for i := 0; i < 1000; i++ {
		if !rb.Put(byte(i)) {
			t.Fatalf("Put %d refused", i)
		}
		if i%3 == 0 {
			continue
		}
		for rb.Used() > 0 {
			rb.Get()
		}
	}
	rb.Clear()
	if rb.Used() != 0 {
		t.Fatal("Clear left data")
	}
}

func TestStage_OverflowLatchesOverrun(t *testing.T) {
	var rx rxState
	for i := 0; i < StagingCapacity; i++ {
		if !rx.stage(byte(i)) {
			t.Fatalf("stage %d refused", i)
		}
	}
	if rx.stage(0xaa) {
		t.Fatal("stage past capacity succeeded")
	}
	err, ok := rx.latched.take()
	if !ok || err.Kind != KindOverrun || err.Data != 0xaa {
		t.Fatalf("latched = %+v, %v", err, ok)
	}
}

func TestErrorLatch_Priority(t *testing.T) {
	var l errorLatch
	l.raise(ErrBreak)
	l.raise(ErrParity)
	l.raise(ErrFraming)
	err, ok := l.take()
	if !ok || !errors.Is(err, ErrParity) {
		t.Fatalf("took %v; want parity", err)
	}
	if _, ok := l.take(); ok {
		t.Fatal("latch not cleared by take")
	}

	l.raise(TransferError{Kind: KindOverrun, Data: 1, HasData: true})
	l.raise(TransferError{Kind: KindOverrun, Data: 2, HasData: true})
	if err, _ := l.take(); err.Data != 1 {
		t.Fatalf("later overrun replaced the first: data %d", err.Data)
	}
}

func TestErrorLatch_Position(t *testing.T) {
	var l errorLatch
	l.raiseAfter(ErrParity, 2)
	if l.due() {
		t.Fatal("error due before the bytes ahead of it")
	}
	l.passed()
	if l.due() {
		t.Fatal("error due with one byte still ahead")
	}
	l.passed()
	if !l.due() {
		t.Fatal("error not due after the bytes ahead of it")
	}

	// A staging overrun moves the merged error to the front.
	l.clear()
	l.raiseAfter(ErrFraming, 5)
	l.raise(TransferError{Kind: KindOverrun, Data: 7, HasData: true})
	if !l.due() {
		t.Fatal("overrun not due")
	}
	if err, _ := l.take(); err.Kind != KindOverrun || err.Data != 7 {
		t.Fatalf("take = %#v; want overrun of 7", err)
	}
	if l.set || l.ahead != 0 {
		t.Fatal("take left state behind")
	}
}
