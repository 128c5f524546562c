//go:build (rp2040 || rp2350) && uartxdebug

package main

import (
	"context"
	"crypto/sha1"
	"time"

	"machine"

	"github.com/jangala-dev/uartcore/uartx"
)

const baud = 115200

func printStats(u *uartx.Device, label string) {
	s := u.DebugStats()
	println("==", label)
	println("ISR:    count=", s.ISRCount, " rx=", s.ISRReceive, " tx=", s.ISRTransmit, " spurious=", s.ISRSpurious)
	println("Notify: sent=", s.NotifySent, " dropped=", s.NotifyDropped)
	println("Errors: OE=", s.ErrOverrun, " BE=", s.ErrBreak, " PE=", s.ErrParity, " FE=", s.ErrFraming)
	println("Waits:  waits=", s.ReadWaits, " spurious=", s.SpuriousWakes, " timeouts=", s.Timeouts)
	print("Regs:  ")
	for _, r := range u.Registers() {
		print(" ", r.Name, "=", r.Value)
	}
	println()
}

func drain(rx *uartx.Receiver) {
	var tmp [64]byte
	for {
		n, err := rx.Read(tmp[:])
		if n == 0 && err == nil {
			return
		}
	}
}

// recvExact keeps reading through line errors so overruns show up in the
// counters rather than ending the phase.
func recvExact(ctx context.Context, rx *uartx.Receiver, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	tmp := make([]byte, 128)
	for len(out) < n {
		k, err := rx.RecvSomeContext(ctx, tmp[:min(len(tmp), n-len(out))])
		out = append(out, tmp[:k]...)
		if err == context.DeadlineExceeded || err == context.Canceled {
			return out, err
		}
	}
	return out, nil
}

func main() {
	delay := 10
	for i := 0; i < delay; i++ {
		println("test starting in ", delay-i, " seconds")
		time.Sleep(time.Second)
	}
	println("uartx probe (diagnostic)")

	u := uartx.UART1
	if err := uartx.SetupRP2(u, machine.UART1_TX_PIN, machine.UART1_RX_PIN, uartx.Config{BaudRate: baud}); err != nil {
		println("fatal:", err.Error())
		for {
			time.Sleep(time.Hour)
		}
	}
	u.EnableInterrupts(uartx.CauseAll)
	tx, _ := u.TakeSender()
	rx, _ := u.TakeReceiver()

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	u.DebugReset()
	drain(rx)

	// Phase 1: 1 KiB integrity
	println("\n[phase] integrity-1k")
	src := make([]byte, 1024)
	var x uint32 = 0x12345678
	for i := range src {
		x = 1664525*x + 1013904223
		src[i] = byte(x >> 24)
	}
	want := sha1.Sum(src)
	ctx1, cancel1 := context.WithTimeout(context.Background(), 2*time.Second)
	go func() { _, _ = tx.SendAllContext(ctx1, src) }()
	got, err := recvExact(ctx1, rx, len(src))
	cancel1()
	switch {
	case err != nil:
		println(" result: TIMEOUT (received", len(got), "bytes)")
	case sha1.Sum(got) != want:
		println(" result: HASH MISMATCH (received", len(got), "bytes)")
	default:
		println(" result: OK (1 KiB)")
	}
	printStats(u, "after integrity-1k")

	// Phase 2: burst 8 KiB
	println("\n[phase] burst-8k (late reader)")
	u.DebugReset()
	drain(rx)
	n := 8 * 1024
	burst := make([]byte, n)
	for i := 0; i < n; i++ {
		burst[i] = byte(i)
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 3*time.Second)
	go func() { _, _ = tx.SendAllContext(ctx2, burst) }()
	// Hold off reads initially to force an overrun.
	time.Sleep(50 * time.Millisecond)
	got2, err2 := recvExact(ctx2, rx, n)
	cancel2()
	if err2 != nil {
		println(" result: TIMEOUT (received", len(got2), "bytes)")
	} else {
		println(" result: received all", len(got2), "bytes")
	}
	printStats(u, "after burst-8k")

	// Phase 3: notify sanity (two bytes)
	println("\n[phase] notify-2bytes")
	u.DebugReset()
	drain(rx)
	ready := rx.Readable()
	go func() {
		tx.SendByte('A')
		time.Sleep(5 * time.Millisecond)
		tx.SendByte('B')
	}()
	select {
	case <-ready:
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		got3, _ := recvExact(ctx, rx, 2)
		println(" result: got '", string(got3), "'")
	case <-time.After(300 * time.Millisecond):
		println(" result: no notification within 300ms")
	}
	printStats(u, "after notify-2bytes")

	println("\ndone")
}
