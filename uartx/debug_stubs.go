//go:build !uartxdebug

package uartx

type Stats struct{}

func (d *Device) DebugReset()       {}
func (d *Device) DebugStats() Stats { return Stats{} }
