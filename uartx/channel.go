package uartx

import "sync/atomic"

// Handle is a split-ownership capability issued by a Device: a *Sender, a
// *Receiver or an *IrqHandler. Each records the register base of the Device
// that issued it and can only be given back there.
type Handle interface {
	Base() uintptr
	core() *handle
}

type handle struct {
	dev  *Device
	base uintptr
	live atomic.Bool
}

// Base returns the register base of the issuing Device.
func (h *handle) Base() uintptr { return h.base }

func (h *handle) core() *handle { return h }

// slot holds the one outstanding-or-available handle of a kind.
type slot[T any] struct {
	h       *T
	present bool
}

func (s *slot[T]) fill(h *T) { s.h, s.present = h, true }

func (s *slot[T]) take() (*T, bool) {
	if !s.present {
		return nil, false
	}
	h := s.h
	s.h, s.present = nil, false
	return h, true
}

// TakeSender hands out the transmit handle. It returns false while a Sender
// is outstanding.
func (d *Device) TakeSender() (*Sender, bool) {
	st := d.rx.cs.enter()
	h, ok := d.sender.take()
	d.rx.cs.exit(st)
	if ok {
		h.live.Store(true)
		d.logDebug(ComponentChannel, "sender taken")
	}
	return h, ok
}

// TakeReceiver hands out the receive handle. It returns false while a
// Receiver is outstanding.
func (d *Device) TakeReceiver() (*Receiver, bool) {
	st := d.rx.cs.enter()
	h, ok := d.receiver.take()
	d.rx.cs.exit(st)
	if ok {
		h.live.Store(true)
		d.logDebug(ComponentChannel, "receiver taken")
	}
	return h, ok
}

// TakeIrqHandler hands out the interrupt handle. It returns false while an
// IrqHandler is outstanding.
func (d *Device) TakeIrqHandler() (*IrqHandler, bool) {
	st := d.rx.cs.enter()
	h, ok := d.irq.take()
	d.rx.cs.exit(st)
	if ok {
		h.live.Store(true)
		d.logDebug(ComponentChannel, "irq handler taken")
	}
	return h, ok
}

// GiveBack returns h to d so it can be taken again. A handle issued for a
// different register base is refused with a *MismatchError and d is left
// unchanged. A handle that was already returned, or whose slot is occupied,
// is refused with ErrHandleReturned. The returned handle value is dead from
// then on; the next Take issues a fresh one.
func (d *Device) GiveBack(h Handle) error {
	if isNilHandle(h) {
		return ErrHandleReturned
	}
	hh := h.core()
	kind := handleKind(h)
	if hh.base != d.port.Base() {
		d.stats.mismatch()
		err := &MismatchError{Handle: kind, Device: d.port.Base(), Issued: hh.base}
		d.logWarn(ComponentChannel, "give-back refused", "err", err)
		return err
	}
	if !hh.live.Load() {
		return ErrHandleReturned
	}

	st := d.rx.cs.enter()
	var ok bool
	switch h.(type) {
	case *Sender:
		ok = !d.sender.present
		if ok {
			d.sender.fill(&Sender{handle: handle{dev: d, base: hh.base}})
		}
	case *Receiver:
		ok = !d.receiver.present
		if ok {
			d.receiver.fill(&Receiver{handle: handle{dev: d, base: hh.base}})
		}
	case *IrqHandler:
		ok = !d.irq.present
		if ok {
			d.irq.fill(&IrqHandler{handle: handle{dev: d, base: hh.base}})
		}
	}
	d.rx.cs.exit(st)

	if !ok {
		return ErrHandleReturned
	}
	hh.live.Store(false)
	d.logDebug(ComponentChannel, "handle returned", "kind", kind)
	return nil
}

func isNilHandle(h Handle) bool {
	switch v := h.(type) {
	case *Sender:
		return v == nil
	case *Receiver:
		return v == nil
	case *IrqHandler:
		return v == nil
	}
	return h == nil
}

func handleKind(h Handle) string {
	switch h.(type) {
	case *Sender:
		return "sender"
	case *Receiver:
		return "receiver"
	case *IrqHandler:
		return "irq handler"
	}
	return "handle"
}

// Sender owns the transmit side of a Device.
type Sender struct {
	handle
}

// Release gives the Sender back to its Device.
func (s *Sender) Release() error { return s.dev.GiveBack(s) }

// SendByte writes b if the transmitter can take it. A returned Sender
// always declines.
func (s *Sender) SendByte(b byte) bool {
	if !s.live.Load() {
		return false
	}
	return s.dev.chip.sendByte(b)
}

// Send writes bytes from p until the transmitter declines and returns the
// number written.
func (s *Sender) Send(p []byte) int {
	if !s.live.Load() {
		return 0
	}
	return send(s.dev.chip, p)
}

// CanSend reports whether SendByte would accept a byte now.
func (s *Sender) CanSend() bool {
	return s.live.Load() && s.dev.chip.canSend()
}

// Receiver owns the receive side of a Device.
type Receiver struct {
	handle
}

// Release gives the Receiver back to its Device.
func (r *Receiver) Release() error { return r.dev.GiveBack(r) }

// ReadByte behaves like Device.ReadByte. A returned Receiver reports
// ErrHandleReturned.
func (r *Receiver) ReadByte() (byte, error) {
	if !r.live.Load() {
		return 0, ErrHandleReturned
	}
	return r.dev.chip.readByte()
}

// Read behaves like Device.Read.
func (r *Receiver) Read(p []byte) (int, error) {
	if !r.live.Load() {
		return 0, ErrHandleReturned
	}
	return read(r.dev.chip, p)
}

// CanRead reports whether a byte or a pending line error can be read now.
func (r *Receiver) CanRead() bool {
	return r.live.Load() && r.dev.chip.canRead()
}

// ClearErrors drops any latched line error.
func (r *Receiver) ClearErrors() {
	if r.live.Load() {
		r.dev.chip.clearErrors()
	}
}

// IrqHandler owns interrupt servicing for a Device. Handle is the only
// method meant to run in interrupt context.
type IrqHandler struct {
	handle
}

// Release gives the IrqHandler back to its Device.
func (h *IrqHandler) Release() error { return h.dev.GiveBack(h) }

// Handle identifies and clears the pending interrupt and returns the
// portable causes it maps to. An empty set means nothing this core cares
// about was pending. Received bytes are staged for the Receiver and, for
// a receive-ready cause, Readable is signalled.
func (h *IrqHandler) Handle() Cause {
	if !h.live.Load() {
		return CauseNone
	}
	return h.dev.handleInterrupt()
}
