//go:build uartxdebug

package uartx

import "sync/atomic"

// Stats holds counters since the last reset.
type Stats struct {
	// ISR-level
	ISRCount      uint32 // IrqHandler.Handle calls
	ISRReceive    uint32 // calls classified as receive-ready
	ISRTransmit   uint32 // calls classified as transmit-empty
	ISRSpurious   uint32 // calls with nothing pending
	NotifySent    uint32 // notify channel sends that succeeded
	NotifyDropped uint32 // notify channel sends that were dropped (already pending)

	// Line errors seen on the receive path
	ErrOverrun uint32
	ErrParity  uint32
	ErrFraming uint32
	ErrBreak   uint32

	// Staging buffer
	StagePuts    uint32 // bytes staged
	StageDrops   uint32 // bytes turned into a latched overrun
	StageMaxUsed uint32 // high-water mark of staging occupancy

	// Waiting
	ReadWaits     uint32 // times a context helper had to wait
	SpuriousWakes uint32 // notify received but no data available
	Timeouts      uint32 // context expiries in the wait helpers
	BusyTimeouts  uint32 // Configure busy-wait expiries
	Mismatches    uint32 // GiveBack calls refused for a foreign handle
}

// DebugReset zeroes the counters.
func (d *Device) DebugReset() {
	d.stats = Stats{}
}

// DebugStats returns a copy of the counters.
func (d *Device) DebugStats() Stats {
	s := &d.stats
	return Stats{
		ISRCount:      atomic.LoadUint32(&s.ISRCount),
		ISRReceive:    atomic.LoadUint32(&s.ISRReceive),
		ISRTransmit:   atomic.LoadUint32(&s.ISRTransmit),
		ISRSpurious:   atomic.LoadUint32(&s.ISRSpurious),
		NotifySent:    atomic.LoadUint32(&s.NotifySent),
		NotifyDropped: atomic.LoadUint32(&s.NotifyDropped),

		ErrOverrun: atomic.LoadUint32(&s.ErrOverrun),
		ErrParity:  atomic.LoadUint32(&s.ErrParity),
		ErrFraming: atomic.LoadUint32(&s.ErrFraming),
		ErrBreak:   atomic.LoadUint32(&s.ErrBreak),

		StagePuts:    atomic.LoadUint32(&s.StagePuts),
		StageDrops:   atomic.LoadUint32(&s.StageDrops),
		StageMaxUsed: atomic.LoadUint32(&s.StageMaxUsed),

		ReadWaits:     atomic.LoadUint32(&s.ReadWaits),
		SpuriousWakes: atomic.LoadUint32(&s.SpuriousWakes),
		Timeouts:      atomic.LoadUint32(&s.Timeouts),
		BusyTimeouts:  atomic.LoadUint32(&s.BusyTimeouts),
		Mismatches:    atomic.LoadUint32(&s.Mismatches),
	}
}
