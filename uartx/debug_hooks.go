//go:build uartxdebug

package uartx

import "sync/atomic"

func (s *Stats) isr(c Cause) {
	atomic.AddUint32(&s.ISRCount, 1)
	if c&CauseReceiveReady != 0 {
		atomic.AddUint32(&s.ISRReceive, 1)
	}
	if c&CauseTransmitEmpty != 0 {
		atomic.AddUint32(&s.ISRTransmit, 1)
	}
	if c == CauseNone {
		atomic.AddUint32(&s.ISRSpurious, 1)
	}
}

func (s *Stats) lineError(k TransferKind) {
	switch k {
	case KindOverrun:
		atomic.AddUint32(&s.ErrOverrun, 1)
	case KindParity:
		atomic.AddUint32(&s.ErrParity, 1)
	case KindFraming:
		atomic.AddUint32(&s.ErrFraming, 1)
	case KindBreak:
		atomic.AddUint32(&s.ErrBreak, 1)
	}
}

// staged records one staging attempt and the occupancy after it.
func (s *Stats) staged(ok bool, used uint8) {
	if !ok {
		atomic.AddUint32(&s.StageDrops, 1)
		s.lineError(KindOverrun)
		return
	}
	atomic.AddUint32(&s.StagePuts, 1)
	for {
		max := atomic.LoadUint32(&s.StageMaxUsed)
		if uint32(used) <= max {
			break
		}
		if atomic.CompareAndSwapUint32(&s.StageMaxUsed, max, uint32(used)) {
			break
		}
	}
}

func (s *Stats) notify(sent bool) {
	if sent {
		atomic.AddUint32(&s.NotifySent, 1)
	} else {
		atomic.AddUint32(&s.NotifyDropped, 1)
	}
}

func (s *Stats) readWait()     { atomic.AddUint32(&s.ReadWaits, 1) }
func (s *Stats) spuriousWake() { atomic.AddUint32(&s.SpuriousWakes, 1) }
func (s *Stats) waitTimeout()  { atomic.AddUint32(&s.Timeouts, 1) }
func (s *Stats) busyTimeout()  { atomic.AddUint32(&s.BusyTimeouts, 1) }
func (s *Stats) mismatch()     { atomic.AddUint32(&s.Mismatches, 1) }
