//go:build !tinygo

package uartx

import "sync"

// criticalSection serialises access to state shared with interrupt context.
// On a hosted build the "interrupt" is another goroutine.
type criticalSection struct {
	mu sync.Mutex
}

type csState struct{}

func (c *criticalSection) enter() csState {
	c.mu.Lock()
	return csState{}
}

func (c *criticalSection) exit(csState) { c.mu.Unlock() }
