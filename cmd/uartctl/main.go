// Command uartctl drives a PL011 or NS16550 UART from a Linux host, either
// through /dev/mem (or a UIO map) or against a simulated register block.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jangala-dev/uartcore/uartx"
)

var (
	rootOpts = struct {
		chip     string
		base     string
		clock    uint32
		sim      bool
		mem      string
		regShift uint8
		regWidth uint8
		fifo     uint8
		baud     uint32
		dataBits uint8
		stopBits uint8
		parity   string
		logLevel string
		logJSON  bool
	}{}

	rootCmd = &cobra.Command{
		Use:           "uartctl",
		Short:         "Exercise a memory-mapped UART",
		Long:          "uartctl opens a PL011 or NS16550 UART through /dev/mem or a simulator and runs a self-test, dumps its registers or starts an interactive shell.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&rootOpts.chip, "chip", "pl011", "register layout: pl011 or ns16550")
	f.StringVar(&rootOpts.base, "base", "0x9000000", "physical register base address")
	f.Uint32Var(&rootOpts.clock, "clock", 24000000, "UART reference clock in Hz (0 estimates it on pl011)")
	f.BoolVar(&rootOpts.sim, "sim", false, "use a simulated register block instead of hardware")
	f.StringVar(&rootOpts.mem, "mem", "/dev/mem", "memory device to map registers from (/dev/mem or /dev/uioN)")
	f.Uint8Var(&rootOpts.regShift, "reg-shift", 2, "ns16550 register stride is 1<<reg-shift bytes")
	f.Uint8Var(&rootOpts.regWidth, "reg-io-width", 1, "ns16550 register access width in bytes (1 or 4)")
	f.Uint8Var(&rootOpts.fifo, "fifo-depth", 16, "pl011 FIFO depth (32 on PL011 r1.5)")
	f.Uint32Var(&rootOpts.baud, "baud", 115200, "baud rate")
	f.Uint8Var(&rootOpts.dataBits, "data-bits", 8, "data bits (5-8)")
	f.Uint8Var(&rootOpts.stopBits, "stop-bits", 1, "stop bits (1 or 2)")
	f.StringVar(&rootOpts.parity, "parity", "none", "parity: none, even, odd, mark or space")
	f.StringVar(&rootOpts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.BoolVar(&rootOpts.logJSON, "log-json", false, "log in JSON")

	rootCmd.AddCommand(selftestCmd, regsCmd, shellCmd)
}

func setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(rootOpts.logLevel)); err != nil {
		return fmt.Errorf("uartctl: --log-level: %w", err)
	}
	uartx.SetLogLevel(level)
	format := uartx.LogFormatText
	if rootOpts.logJSON {
		format = uartx.LogFormatJSON
	}
	uartx.SetLogger(uartx.NewLogger(rootCmd.ErrOrStderr(), format))
	return nil
}

func parseBase(s string) (uintptr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("uartctl: --base %q: %w", s, err)
	}
	return uintptr(v), nil
}

func parseParity(s string) (uartx.Parity, error) {
	for p := uartx.ParityNone; p <= uartx.ParitySpace; p++ {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("uartctl: unknown parity %q", s)
}

// lineConfig builds the Config described by the line flags.
func lineConfig() (uartx.Config, error) {
	p, err := parseParity(rootOpts.parity)
	if err != nil {
		return uartx.Config{}, err
	}
	return uartx.Config{
		BaudRate: rootOpts.baud,
		DataBits: uartx.DataBits(rootOpts.dataBits),
		StopBits: uartx.StopBits(rootOpts.stopBits),
		Parity:   p,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
