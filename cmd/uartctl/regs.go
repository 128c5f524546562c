package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jangala-dev/uartcore/uartx"
)

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "Dump the UART registers",
	Long:  "regs prints a non-destructive snapshot of the UART registers followed by the decoded line settings. The device is not reconfigured.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTarget()
		if err != nil {
			return err
		}
		defer t.close()
		printRegisters(cmd.OutOrStdout(), t.dev)
		return nil
	},
}

func printRegisters(w io.Writer, d *uartx.Device) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "base\t0x%08x\n", d.Base())
	for _, r := range d.Registers() {
		fmt.Fprintf(tw, "%s\t+0x%03x\t0x%08x\n", r.Name, r.Offset, r.Value)
	}
	tw.Flush()

	f := d.Format()
	fmt.Fprintf(w, "line: %d%c%d, divisor gives %d baud (clock %d Hz)\n",
		f.DataBits, parityLetter(f.Parity), f.StopBits, d.ActualBaudRate(), d.ClockFrequency())
	fmt.Fprintf(w, "fifo: %v  loopback: %v  irq mask: %v\n",
		d.HasFIFO(), d.IsLoopbackEnabled(), d.InterruptMask())
}

func parityLetter(p uartx.Parity) byte {
	switch p {
	case uartx.ParityEven:
		return 'E'
	case uartx.ParityOdd:
		return 'O'
	case uartx.ParityMark:
		return 'M'
	case uartx.ParitySpace:
		return 'S'
	}
	return 'N'
}
