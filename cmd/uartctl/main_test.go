package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/jangala-dev/uartcore/uartx"
)

// resetFlags restores every flag to its default between runs.
func resetFlags() {
	reset := func(f *pflag.Flag) { _ = f.Value.Set(f.DefValue) }
	rootCmd.PersistentFlags().VisitAll(reset)
	selftestCmd.Flags().VisitAll(reset)
}

// execute runs uartctl with args on freshly defaulted flags.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSelftestSim(t *testing.T) {
	for _, tc := range []struct {
		chip string
		base string
	}{
		{"pl011", "0x9000000"},
		{"ns16550", "0x10000000"},
	} {
		t.Run(tc.chip, func(t *testing.T) {
			out, err := execute(t, "selftest", "--sim", "--chip", tc.chip, "--base", tc.base)
			if err != nil {
				t.Fatalf("selftest: %v\n%s", err, out)
			}
			if !strings.Contains(out, "failed = 0") || strings.Contains(out, "FAIL") {
				t.Fatalf("unexpected failures:\n%s", out)
			}
		})
	}
}

func TestSelftestRejectsBadFormat(t *testing.T) {
	_, err := execute(t, "selftest", "--sim", "--stop-bits", "2")
	if !errors.Is(err, uartx.ErrUnsupportedStopBits) {
		t.Fatalf("8N2: got %v", err)
	}
}

func TestRegsSim(t *testing.T) {
	out, err := execute(t, "regs", "--sim", "--chip", "ns16550", "--base", "0x10000000")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"0x10000000", "LCR", "DLL", "SCR"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	out, err = execute(t, "regs", "--sim")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "IBRD") || strings.Contains(out, "\nDR") {
		t.Errorf("pl011 dump:\n%s", out)
	}
}

func TestBadFlags(t *testing.T) {
	if _, err := execute(t, "regs", "--sim", "--chip", "8250"); err == nil {
		t.Error("unknown chip accepted")
	}
	if _, err := execute(t, "regs", "--sim", "--base", "uart0"); err == nil {
		t.Error("bad base accepted")
	}
	if _, err := execute(t, "selftest", "--sim", "--parity", "sometimes"); err == nil {
		t.Error("bad parity accepted")
	}
	if _, err := execute(t, "regs", "--sim", "--log-level", "loud"); err == nil {
		t.Error("bad log level accepted")
	}
}

func newConsole(t *testing.T, chip string) (*console, *bytes.Buffer) {
	t.Helper()
	resetFlags()
	rootOpts.sim, rootOpts.chip = true, chip
	tg, err := openConfigured()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tg.close() })
	tx, _ := tg.dev.TakeSender()
	rx, _ := tg.dev.TakeReceiver()
	var out bytes.Buffer
	return &console{dev: tg.dev, tx: tx, rx: rx, w: &out}, &out
}

func TestConsoleLoopback(t *testing.T) {
	for _, chip := range []string{"pl011", "ns16550"} {
		t.Run(chip, func(t *testing.T) {
			c, out := newConsole(t, chip)
			ctx := context.Background()
			for _, line := range []string{"loopback on", "send hi there", "read"} {
				if _, err := c.exec(ctx, line); err != nil {
					t.Fatalf("%s: %v", line, err)
				}
			}
			if !strings.Contains(out.String(), `"hi there\r\n"`) {
				t.Fatalf("read output:\n%s", out)
			}

			out.Reset()
			if _, err := c.exec(ctx, "hex 41 0a"); err != nil {
				t.Fatal(err)
			}
			if _, err := c.exec(ctx, "read"); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), `"A\n"`) {
				t.Fatalf("hex output:\n%s", out)
			}
		})
	}
}

func TestConsoleConfig(t *testing.T) {
	c, out := newConsole(t, "pl011")
	ctx := context.Background()
	if _, err := c.exec(ctx, "config baud=9600 data=7 parity=even"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "9600 baud 7E1") {
		t.Fatalf("config output: %q", out)
	}
	if _, err := c.exec(ctx, "config stop=2 data=8 parity=none"); !errors.Is(err, uartx.ErrUnsupportedStopBits) {
		t.Fatalf("8N2: got %v", err)
	}
	if f := c.dev.Format(); f.DataBits != 7 || f.Parity != uartx.ParityEven {
		t.Fatalf("rejected config changed format to %+v", f)
	}
	if _, err := c.exec(ctx, "config speed=fast"); err == nil {
		t.Fatal("bad key accepted")
	}
}

func TestConsoleMisc(t *testing.T) {
	c, out := newConsole(t, "ns16550")
	ctx := context.Background()

	if _, err := c.exec(ctx, "trigger 10"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "trigger level 8") {
		t.Fatalf("trigger output: %q", out)
	}
	if _, err := c.exec(ctx, "status"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "tx-empty=true") {
		t.Fatalf("status output: %q", out)
	}
	if _, err := c.exec(ctx, "loopback maybe"); err == nil {
		t.Fatal("bad loopback argument accepted")
	}
	if _, err := c.exec(ctx, "frobnicate"); err == nil {
		t.Fatal("unknown command accepted")
	}
	if quit, err := c.exec(ctx, "quit"); !quit || err != nil {
		t.Fatalf("quit = %v, %v", quit, err)
	}
}
