package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jangala-dev/uartcore/uartx"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive UART console",
	Long: `shell opens the UART and reads commands from the terminal. Received
bytes are collected by a polled interrupt dispatcher; type "help" for the
command list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openConfigured()
		if err != nil {
			return err
		}
		defer t.close()
		return runShell(cmd.Context(), cmd.OutOrStdout(), t)
	},
}

var shellCommands = []string{
	"help", "send", "hex", "read", "wait", "status", "regs",
	"config", "loopback", "trigger", "clear", "quit",
}

const shellHelp = `commands:
  send TEXT          send TEXT followed by CRLF
  hex XX XX ...      send raw bytes
  read               print everything received so far
  wait [DURATION]    block for received data (default 1s)
  status             line status and staged byte count
  regs               register snapshot
  config K=V ...     baud=, data=, stop=, parity=
  loopback on|off    internal loopback
  trigger N          receive FIFO trigger level
  clear              discard received data and errors
  quit`

// console is the state shared by shell commands.
type console struct {
	dev *uartx.Device
	tx  *uartx.Sender
	rx  *uartx.Receiver
	w   io.Writer
}

func runShell(ctx context.Context, w io.Writer, t *target) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d := t.dev
	tx, okTx := d.TakeSender()
	rx, okRx := d.TakeReceiver()
	irq, okIrq := d.TakeIrqHandler()
	if !okTx || !okRx || !okIrq {
		return fmt.Errorf("uartctl: shell: handles already taken")
	}
	defer tx.Release()
	defer rx.Release()
	defer irq.Release()

	g, gctx := errgroup.WithContext(ctx)
	stop, cancel := context.WithCancel(gctx)
	defer cancel()
	g.Go(func() error { return dispatch(stop, t, irq, time.Millisecond) })
	d.EnableInterrupts(uartx.CauseReceiveReady)
	defer d.DisableInterrupts(uartx.CauseAll)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(s string) []string {
		var out []string
		for _, c := range shellCommands {
			if strings.HasPrefix(c, s) {
				out = append(out, c)
			}
		}
		return out
	})

	c := &console{dev: d, tx: tx, rx: rx, w: w}
	prompt := fmt.Sprintf("uart@%x> ", d.Base())
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("uartctl: shell: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		quit, err := c.exec(ctx, input)
		if err != nil {
			fmt.Fprintln(w, "error:", err)
		}
		if quit {
			break
		}
	}

	cancel()
	return g.Wait()
}

// exec runs one command line. It reports whether the shell should exit.
func (c *console) exec(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false, nil
	}
	args := fields[1:]
	switch fields[0] {
	case "help", "?":
		fmt.Fprintln(c.w, shellHelp)
	case "quit", "exit":
		return true, nil
	case "send":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "send"))
		return false, c.send([]byte(text + "\r\n"))
	case "hex":
		p := make([]byte, 0, len(args))
		for _, a := range args {
			v, err := strconv.ParseUint(a, 16, 8)
			if err != nil {
				return false, fmt.Errorf("hex %q: %w", a, err)
			}
			p = append(p, byte(v))
		}
		return false, c.send(p)
	case "read":
		return false, c.read()
	case "wait":
		timeout := time.Second
		if len(args) > 0 {
			var err error
			if timeout, err = time.ParseDuration(args[0]); err != nil {
				return false, err
			}
		}
		wctx, done := context.WithTimeout(ctx, timeout)
		defer done()
		if err := c.rx.WaitReadable(wctx); err != nil {
			return false, err
		}
		return false, c.read()
	case "status":
		s := c.dev.LineStatus()
		fmt.Fprintf(c.w, "data-ready=%v tx-holding-empty=%v tx-empty=%v staged=%d\n",
			s.Has(uartx.LineDataReady), s.Has(uartx.LineTxHoldingEmpty), s.Has(uartx.LineTxEmpty),
			c.dev.Buffered())
	case "regs":
		printRegisters(c.w, c.dev)
	case "config":
		cfg, err := parseConfigArgs(args)
		if err != nil {
			return false, err
		}
		if err := c.dev.Configure(cfg); err != nil {
			return false, err
		}
		f := c.dev.Format()
		fmt.Fprintf(c.w, "%d baud %d%c%d\n", c.dev.BaudRate(), f.DataBits, parityLetter(f.Parity), f.StopBits)
	case "loopback":
		if len(args) != 1 {
			return false, errors.New("usage: loopback on|off")
		}
		switch args[0] {
		case "on":
			c.dev.EnableLoopback()
		case "off":
			c.dev.DisableLoopback()
		default:
			return false, fmt.Errorf("loopback %q: want on or off", args[0])
		}
	case "trigger":
		if len(args) != 1 {
			return false, errors.New("usage: trigger N")
		}
		n, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.w, "trigger level", c.dev.SetFIFOTriggerLevel(uint8(n)))
	case "clear":
		c.dev.ClearReceiveFIFO()
		c.rx.ClearErrors()
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

func (c *console) send(p []byte) error {
	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	for sent := 0; sent < len(p); {
		if n := c.tx.Send(p[sent:]); n > 0 {
			sent += n
			continue
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("sent %d of %d bytes: %w", sent, len(p), ctx.Err())
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

// read prints whatever the receiver holds. A line error is reported after
// the bytes that preceded it.
func (c *console) read() error {
	var out []byte
	buf := make([]byte, 64)
	for {
		n, err := c.rx.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			fmt.Fprintf(c.w, "%q\n", out)
			return err
		}
		if n == 0 {
			break
		}
	}
	fmt.Fprintf(c.w, "%q\n", out)
	return nil
}

func parseConfigArgs(args []string) (uartx.Config, error) {
	var cfg uartx.Config
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return cfg, fmt.Errorf("config %q: want key=value", a)
		}
		if k == "parity" {
			p, err := parseParity(v)
			if err != nil {
				return cfg, err
			}
			cfg.Parity = p
			continue
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", k, err)
		}
		switch k {
		case "baud":
			cfg.BaudRate = uint32(n)
		case "data":
			cfg.DataBits = uartx.DataBits(n)
		case "stop":
			cfg.StopBits = uartx.StopBits(n)
		default:
			return cfg, fmt.Errorf("config: unknown key %q", k)
		}
	}
	return cfg, nil
}
