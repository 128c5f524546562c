//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"github.com/jangala-dev/uartcore/uartx"
)

func main() {
	time.Sleep(2 * time.Second)

	u := uartx.UART0

	println("Before setup:")
	report(u)

	// TinyGo defaults: 115200 8N1 on the board's UART pins.
	if err := uartx.SetupRP2(u, machine.NoPin, machine.NoPin, uartx.Config{}); err != nil {
		println("setup failed:", err.Error())
	}

	println("After SetupRP2():")
	report(u)

	println("Trigger levels (requested -> programmed):")
	for _, level := range []uint8{1, 4, 8, 12, 16, 24, 28, 32} {
		print("  ", level, " -> ", u.SetFIFOTriggerLevel(level), "  IFLS=0x")
		printlnHex(register(u, "IFLS"))
	}

	u.EnableFIFO(false)
	println("After EnableFIFO(false):")
	report(u)

	for {
		time.Sleep(time.Second)
	}
}

func register(u *uartx.Device, name string) uint32 {
	for _, r := range u.Registers() {
		if r.Name == name {
			return r.Value
		}
	}
	return 0
}

func report(u *uartx.Device) {
	println("-----------------------------")
	for _, r := range u.Registers() {
		print(r.Name, "\t= 0x")
		printlnHex(r.Value)
	}
	println("FIFOs enabled =", u.HasFIFO())
	println("divisor baud =", u.ActualBaudRate(), "clock =", u.ClockFrequency())
}

func printlnHex(v uint32) {
	const hexdigits = "0123456789abcdef"
	var b [8]byte
	for i := 0; i < 8; i++ {
		shift := uint(28 - 4*i)
		b[i] = hexdigits[(v>>shift)&0xF]
	}
	println(string(b[:]))
}
