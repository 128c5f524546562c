//go:build rp2040 || rp2350

package main

import (
	"context"
	"crypto/sha1"
	"errors"
	"time"

	"machine"

	"github.com/jangala-dev/uartcore/uartx"
)

var (
	u          = uartx.UART1
	txPin      = machine.UART1_TX_PIN
	rxPin      = machine.UART1_RX_PIN
	baud       = uint32(115200)
	lineEnding = "\r\n"

	// Set to false to test through an external TX->RX jumper instead.
	internalLoopback = true
)

func drain(rx *uartx.Receiver) {
	var tmp [64]byte
	for {
		n, err := rx.Read(tmp[:])
		if n == 0 && err == nil {
			return
		}
	}
}

// recvExact reads exactly n bytes (or ctx error) using RecvSomeContext.
func recvExact(ctx context.Context, rx *uartx.Receiver, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	var buf [128]byte
	for len(out) < n {
		k, err := rx.RecvSomeContext(ctx, buf[:min(len(buf), n-len(out))])
		out = append(out, buf[:k]...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func halt() {
	for {
		ledBlink(1, 500*time.Millisecond)
	}
}

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	println("uartx self-test starting")

	if err := uartx.SetupRP2(u, txPin, rxPin, uartx.Config{BaudRate: baud}); err != nil {
		println("SetupRP2 failed:", err.Error())
		halt()
	}
	if internalLoopback {
		u.EnableLoopback()
	}
	u.EnableInterrupts(uartx.CauseAll)

	tx, okTx := u.TakeSender()
	rx, okRx := u.TakeReceiver()
	if !okTx || !okRx {
		println("handles unavailable")
		halt()
	}
	drain(rx)

	pass, fail := 0, 0
	defer func() {
		println("")
		println("Summary")
		println("  passed =", pass)
		println("  failed =", fail)
		if fail == 0 {
			ledBlink(3, 120*time.Millisecond)
		} else {
			for {
				ledBlink(1, 600*time.Millisecond)
				time.Sleep(800 * time.Millisecond)
			}
		}
	}()

	run := func(name string, f func() string) {
		println("")
		println("[Test]", name)
		if msg := f(); msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	run("config: line settings read back", func() string {
		if f := u.Format(); f != (uartx.Format{DataBits: 8, StopBits: 1, Parity: uartx.ParityNone}) {
			return "format is not 8N1"
		}
		if u.BaudRate() != baud {
			return "baud rate not cached"
		}
		println("  actual =", u.ActualBaudRate(), "baud")
		return ""
	})

	run("config: 8N2 rejected", func() string {
		err := u.Configure(uartx.Config{StopBits: uartx.StopBitsTwo})
		if !errors.Is(err, uartx.ErrUnsupportedStopBits) {
			return "accepted"
		}
		if u.StopBits() != uartx.StopBitsOne {
			return "stop bits changed"
		}
		return ""
	})

	run("sanity: short loopback", func() string {
		drain(rx)
		msg := []byte("hello, uartx" + lineEnding)
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if _, err := tx.SendAllContext(ctx, msg); err != nil {
			return "send failed"
		}
		got, err := recvExact(ctx, rx, len(msg))
		if err != nil {
			return "timeout"
		}
		if string(got) != string(msg) {
			return "mismatch"
		}
		return ""
	})

	run("blocking: RecvByteContext waits for a single byte", func() string {
		drain(rx)
		want := byte('Z')
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		go func() {
			time.Sleep(10 * time.Millisecond)
			tx.SendByte(want)
		}()
		b, err := rx.RecvByteContext(ctx)
		if err != nil {
			return "read error"
		}
		if b != want {
			return "wrong byte"
		}
		return ""
	})

	run("timeout: no data within 200ms", func() string {
		drain(rx)
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if err := rx.WaitReadable(ctx); err != context.DeadlineExceeded {
			return "unexpected data"
		}
		return ""
	})

	run("notify: Readable channel", func() string {
		drain(rx)
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		go func() { _, _ = tx.SendAllContext(ctx, []byte("AB")) }()
		select {
		case <-rx.Readable():
			got, err := recvExact(ctx, rx, 2)
			if err != nil || string(got) != "AB" {
				return "wrong data"
			}
			return ""
		case <-time.After(1 * time.Second):
			return "no notification"
		}
	})

	run("framing: two lines", func() string {
		drain(rx)
		data := []byte("first line\r\nsecond line\n")
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		go func() { _, _ = tx.SendAllContext(ctx, data) }()
		got, err := recvExact(ctx, rx, len(data))
		if err != nil {
			return "timeout"
		}
		if string(got) != string(data) {
			return "mismatch"
		}
		return ""
	})

	run("binary: 4 KiB integrity (SHA-1)", func() string {
		drain(rx)
		n := 4 * 1024
		src := make([]byte, n)
		var x uint32 = 0x12345678
		for i := range src {
			x = 1664525*x + 1013904223
			src[i] = byte(x >> 24)
		}
		want := sha1.Sum(src)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		go func() { _, _ = tx.SendAllContext(ctx, src) }()
		got, err := recvExact(ctx, rx, n)
		if err != nil || len(got) != n {
			return "timeout/short read"
		}
		if sha1.Sum(got) != want {
			return "hash mismatch"
		}
		return ""
	})

	run("format: 7E1 round trip and transfer", func() string {
		defer u.Configure(uartx.Config{DataBits: 8, Parity: uartx.ParityNone})
		if err := u.Configure(uartx.Config{DataBits: 7, Parity: uartx.ParityEven}); err != nil {
			return "configure failed"
		}
		if u.DataBits() != 7 || u.Parity() != uartx.ParityEven {
			return "format not read back"
		}
		drain(rx)
		msg := []byte("format-ok" + lineEnding)
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		go func() { _, _ = tx.SendAllContext(ctx, msg) }()
		got, err := recvExact(ctx, rx, len(msg))
		if err != nil {
			return "timeout"
		}
		if string(got) != string(msg) {
			return "mismatch"
		}
		return ""
	})

	println("")
	println("Registers")
	for _, r := range u.Registers() {
		println(" ", r.Name, "=", r.Value)
	}

	println("")
	println("All tests completed")
}
