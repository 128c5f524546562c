package uartx

import "context"

// Writable exposes a coalesced transmit-empty signal suitable for select.
// It is posted by IrqHandler.Handle while CauseTransmitEmpty is enabled.
func (d *Device) Writable() <-chan struct{} { return d.txNotify }

// Writable is Device.Writable for the Sender's Device.
func (s *Sender) Writable() <-chan struct{} { return s.dev.txNotify }

// WaitWritable blocks until the transmitter can take a byte or ctx is done.
func (s *Sender) WaitWritable(ctx context.Context) error {
	for {
		if !s.live.Load() {
			return ErrHandleReturned
		}
		if s.dev.chip.canSend() {
			return nil
		}
		select {
		case <-s.dev.txNotify: // progress likely occurred; re-check
		case <-ctx.Done():
			s.dev.stats.waitTimeout()
			return ctx.Err()
		}
	}
}

// SendSomeContext writes up to len(p) bytes, blocking until at least one is
// accepted or ctx is done. It returns the number written (>=1 on success,
// 0 with the context error).
func (s *Sender) SendSomeContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if !s.live.Load() {
			return 0, ErrHandleReturned
		}
		if n := send(s.dev.chip, p); n > 0 {
			return n, nil
		}
		select {
		case <-s.dev.txNotify:
		case <-ctx.Done():
			s.dev.stats.waitTimeout()
			return 0, ctx.Err()
		}
	}
}

// SendAllContext writes all of p, waiting for transmitter space as needed.
func (s *Sender) SendAllContext(ctx context.Context, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.SendSomeContext(ctx, p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
