package main

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/jangala-dev/uartcore/uartx"
)

var (
	selftestOpts = struct {
		timeout time.Duration
		poll    time.Duration
	}{}

	selftestCmd = &cobra.Command{
		Use:   "selftest",
		Short: "Run the loopback self-test",
		Long: `selftest configures the UART from the line flags, checks that the
settings read back, then runs polled and interrupt-driven transfers with
internal loopback enabled. Interrupts are serviced by polling the device.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openConfigured()
			if err != nil {
				return err
			}
			defer t.close()
			return selftest(cmd.Context(), cmd.OutOrStdout(), t)
		},
	}
)

func init() {
	selftestCmd.Flags().DurationVar(&selftestOpts.timeout, "timeout", time.Second, "per-check timeout")
	selftestCmd.Flags().DurationVar(&selftestOpts.poll, "poll", time.Millisecond, "interrupt poll interval")
}

func drain(d *uartx.Device) {
	var tmp [64]byte
	for {
		n, err := d.Read(tmp[:])
		if n == 0 && err == nil {
			return
		}
	}
}

// recvExact reads exactly n bytes (or ctx error) using the Receiver.
func recvExact(ctx context.Context, rx *uartx.Receiver, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, 128)
	for len(out) < n {
		k, err := rx.RecvSomeContext(ctx, buf[:min(len(buf), n-len(out))])
		out = append(out, buf[:k]...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// pollExact collects n bytes with ReadByte until the deadline passes.
func pollExact(d *uartx.Device, n int, timeout time.Duration) ([]byte, error) {
	out := make([]byte, 0, n)
	deadline := time.Now().Add(timeout)
	for len(out) < n {
		b, err := d.ReadByte()
		switch {
		case err == nil:
			out = append(out, b)
		case !errors.Is(err, uartx.ErrBufferEmpty):
			return out, err
		case time.Now().After(deadline):
			return out, context.DeadlineExceeded
		}
	}
	return out, nil
}

func selftest(ctx context.Context, w io.Writer, t *target) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d := t.dev
	want, err := lineConfig()
	if err != nil {
		return err
	}

	pass, fail := 0, 0
	run := func(name string, f func() string) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "[Test]", name)
		if msg := f(); msg == "" {
			fmt.Fprintln(w, "  PASS")
			pass++
		} else {
			fmt.Fprintln(w, "  FAIL:", msg)
			fail++
		}
	}

	run("config: line settings read back", func() string {
		f := d.Format()
		if f.DataBits != want.DataBits || f.StopBits != want.StopBits || f.Parity != want.Parity {
			return fmt.Sprintf("format %+v", f)
		}
		if d.BaudRate() != want.BaudRate {
			return fmt.Sprintf("baud %d", d.BaudRate())
		}
		actual := d.ActualBaudRate()
		ppm := (int64(actual) - int64(want.BaudRate)) * 1000000 / int64(want.BaudRate)
		fmt.Fprintf(w, "  actual = %d baud (%+d ppm)\n", actual, ppm)
		return ""
	})

	run("config: 8N2 is refused without side effects", func() string {
		before, regs := d.Format(), d.Registers()
		err := d.Configure(uartx.Config{DataBits: 8, StopBits: 2, Parity: uartx.ParityNone})
		if !errors.Is(err, uartx.ErrUnsupportedStopBits) {
			return fmt.Sprintf("got %v", err)
		}
		if d.Format() != before || !slices.Equal(d.Registers(), regs) {
			return "registers changed"
		}
		return ""
	})

	run("config: format round trip", func() string {
		defer d.Configure(want)
		for _, f := range []uartx.Format{
			{DataBits: 7, StopBits: 1, Parity: uartx.ParityEven},
			{DataBits: 6, StopBits: 2, Parity: uartx.ParityOdd},
			{DataBits: 5, StopBits: 2, Parity: uartx.ParityEven},
			{DataBits: 8, StopBits: 1, Parity: uartx.ParitySpace},
		} {
			err := d.Configure(uartx.Config{DataBits: f.DataBits, StopBits: f.StopBits, Parity: f.Parity})
			if err != nil {
				return fmt.Sprintf("%+v: %v", f, err)
			}
			if got := d.Format(); got != f {
				return fmt.Sprintf("wrote %+v, read %+v", f, got)
			}
		}
		return ""
	})

	run("fifo: trigger level rounds down", func() string {
		defer d.SetFIFOTriggerLevel(1)
		got := d.SetFIFOTriggerLevel(8)
		if got == 0 || got > 8 {
			return fmt.Sprintf("level %d", got)
		}
		fmt.Fprintln(w, "  level =", got)
		return ""
	})

	d.EnableLoopback()
	defer d.DisableLoopback()

	run("polled: short loopback", func() string {
		drain(d)
		msg := []byte("Hello, Loopback!")
		if n := d.Send(msg); n != len(msg) {
			return fmt.Sprintf("sent %d of %d", n, len(msg))
		}
		got, err := pollExact(d, len(msg), selftestOpts.timeout)
		if err != nil {
			return err.Error()
		}
		if string(got) != string(msg) {
			return "mismatch"
		}
		return ""
	})

	tx, okTx := d.TakeSender()
	rx, okRx := d.TakeReceiver()
	irq, okIrq := d.TakeIrqHandler()
	if !okTx || !okRx || !okIrq {
		return fmt.Errorf("uartctl: selftest: handles already taken")
	}
	defer tx.Release()
	defer rx.Release()
	defer irq.Release()

	g, gctx := errgroup.WithContext(ctx)
	stop, cancel := context.WithCancel(gctx)
	g.Go(func() error { return dispatch(stop, t, irq, selftestOpts.poll) })

	drain(d)
	d.EnableInterrupts(uartx.CauseAll)

	run("irq: Readable notification", func() string {
		if n := tx.Send([]byte("AB")); n != 2 {
			return "could not enqueue"
		}
		select {
		case <-rx.Readable():
		case <-time.After(selftestOpts.timeout):
			return "no notification"
		}
		c, done := context.WithTimeout(ctx, selftestOpts.timeout)
		defer done()
		got, err := recvExact(c, rx, 2)
		if err != nil || string(got) != "AB" {
			return "wrong data"
		}
		return ""
	})

	run("irq: no data within 200ms", func() string {
		c, done := context.WithTimeout(ctx, 200*time.Millisecond)
		defer done()
		if err := rx.WaitReadable(c); !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Sprintf("got %v", err)
		}
		return ""
	})

	run("irq: 4 KiB echo integrity (SHA-1)", func() string {
		src := make([]byte, 4*1024)
		var x uint32 = 0x12345678
		for i := range src {
			x = 1664525*x + 1013904223
			src[i] = byte(x >> 24)
		}
		sum := sha1.New()
		c, done := context.WithTimeout(ctx, 4*selftestOpts.timeout)
		defer done()
		for off := 0; off < len(src); off += 8 {
			chunk := src[off:min(off+8, len(src))]
			if _, err := tx.SendAllContext(c, chunk); err != nil {
				return fmt.Sprintf("send at %d: %v", off, err)
			}
			got, err := recvExact(c, rx, len(chunk))
			if err != nil {
				return fmt.Sprintf("recv at %d: %v", off, err)
			}
			sum.Write(got)
		}
		var got [sha1.Size]byte
		copy(got[:], sum.Sum(nil))
		if got != sha1.Sum(src) {
			return "hash mismatch"
		}
		return ""
	})

	d.DisableInterrupts(uartx.CauseAll)
	cancel()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("uartctl: selftest: dispatch: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, "  passed =", pass)
	fmt.Fprintln(w, "  failed =", fail)
	if fail > 0 {
		return fmt.Errorf("uartctl: selftest: %d of %d checks failed", fail, pass+fail)
	}
	return nil
}
