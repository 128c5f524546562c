package main

import (
	"context"
	"time"

	"github.com/jangala-dev/uartcore/uartx"
)

// maxHandlePerTick bounds the work done for one poll so a level-triggered
// source nobody drains cannot starve the ticker.
const maxHandlePerTick = 16

// dispatch stands in for an interrupt controller: it calls irq.Handle while
// the target reports an interrupt pending, then sleeps until the next tick.
func dispatch(ctx context.Context, t *target, irq *uartx.IrqHandler, every time.Duration) error {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		for i := 0; i < maxHandlePerTick && t.pending(); i++ {
			if irq.Handle().Empty() {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
