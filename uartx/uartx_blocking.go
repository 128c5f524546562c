package uartx

import "context"

// Readable exposes a coalesced receive-ready signal suitable for select. It
// is posted by IrqHandler.Handle, so it only fires while receive interrupts
// are enabled and dispatched.
func (d *Device) Readable() <-chan struct{} { return d.notify }

// Readable is Device.Readable for the Receiver's Device.
func (r *Receiver) Readable() <-chan struct{} { return r.dev.notify }

// WaitReadable blocks until a byte or a line error can be read, or ctx is done.
func (r *Receiver) WaitReadable(ctx context.Context) error {
	for {
		if !r.live.Load() {
			return ErrHandleReturned
		}
		if r.dev.chip.canRead() {
			return nil
		}
		r.dev.stats.readWait()
		select {
		case <-r.dev.notify:
			// re-check; if empty, it was a spurious wake (coalesced notify)
			if !r.dev.chip.canRead() {
				r.dev.stats.spuriousWake()
			}
		case <-ctx.Done():
			r.dev.stats.waitTimeout()
			return ctx.Err()
		}
	}
}

// RecvSomeContext blocks until at least one byte is available, then reads up
// to len(p). A line error ends the call with the bytes read before it.
func (r *Receiver) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := r.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		r.dev.stats.readWait()
		select {
		case <-r.dev.notify:
			if !r.dev.chip.canRead() {
				r.dev.stats.spuriousWake()
			}
		case <-ctx.Done():
			r.dev.stats.waitTimeout()
			return 0, ctx.Err()
		}
	}
}

// RecvByteContext blocks for a single byte, a line error, or until ctx is done.
func (r *Receiver) RecvByteContext(ctx context.Context) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != ErrBufferEmpty {
			return b, err
		}
		r.dev.stats.readWait()
		select {
		case <-r.dev.notify:
			if !r.dev.chip.canRead() {
				r.dev.stats.spuriousWake()
			}
		case <-ctx.Done():
			r.dev.stats.waitTimeout()
			return 0, ctx.Err()
		}
	}
}
