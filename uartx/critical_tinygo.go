//go:build tinygo

package uartx

import "runtime/interrupt"

// criticalSection masks interrupts on the current core for its duration. The
// previous mask is restored on exit, so sections nest and may be entered from
// an interrupt handler.
type criticalSection struct{}

type csState = interrupt.State

func (c *criticalSection) enter() csState { return interrupt.Disable() }

func (c *criticalSection) exit(s csState) { interrupt.Restore(s) }
