package sim

import "sync"

const (
	nsRegCount = 8

	nsIERRDI  = 0x01
	nsIERTHRI = 0x02
	nsIERRLSI = 0x04
	nsIERMSI  = 0x08

	nsFCREnable  = 0x01
	nsFCRClearRx = 0x02

	nsLCRDLAB = 0x80
	nsMCRLoop = 0x10

	nsLSRDR     = 0x01
	nsLSROE     = 0x02
	nsLSRErrors = 0x1e
	nsLSRTHRE   = 0x20
	nsLSRTEMT   = 0x40

	// NSFIFODepth is the receive FIFO depth with FIFOs enabled.
	NSFIFODepth = 16
)

var nsTriggers = [4]int{1, 4, 8, 14}

// NS16550 models a 16550A: 16-byte receive FIFO, DLAB-banked divisor latch,
// prioritised IIR, destructive LSR and MSR reads.
type NS16550 struct {
	mu sync.Mutex

	base  uintptr
	shift uint8

	dll, dlm byte
	ier      byte
	fcr      byte
	lcr      byte
	mcr      byte
	scr      byte
	msrDelta byte

	lsrErr     byte // sticky error bits, cleared by reading LSR
	rx         []byte
	tx         []byte
	thrPending bool
	busy       busy
	writes     int
}

// NewNS16550 returns a model at base whose registers are 1<<shift bytes apart.
func NewNS16550(base uintptr, shift uint8) *NS16550 {
	return &NS16550{base: base, shift: shift}
}

func (s *NS16550) Base() uintptr { return s.base }
func (s *NS16550) Barrier()      {}

func (s *NS16550) reg(off uintptr) (uint8, bool) {
	stride := uintptr(1) << s.shift
	if off%stride != 0 || off/stride >= nsRegCount {
		return 0, false
	}
	return uint8(off / stride), true
}

func (s *NS16550) Load8(off uintptr) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reg(off)
	if !ok {
		return 0
	}
	return s.readRegister(r)
}

func (s *NS16550) Store8(off uintptr, v uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if r, ok := s.reg(off); ok {
		s.writeRegister(r, v)
	}
}

func (s *NS16550) Load32(off uintptr) uint32     { return uint32(s.Load8(off)) }
func (s *NS16550) Store32(off uintptr, v uint32) { s.Store8(off, uint8(v)) }

func (s *NS16550) depth() int {
	if s.fcr&nsFCREnable != 0 {
		return NSFIFODepth
	}
	return 1
}

func (s *NS16550) push(b byte) {
	if len(s.rx) >= s.depth() {
		s.lsrErr |= nsLSROE
		return
	}
	s.rx = append(s.rx, b)
}

func (s *NS16550) readRegister(r uint8) byte {
	switch r {
	case 0:
		if s.lcr&nsLCRDLAB != 0 {
			return s.dll
		}
		if len(s.rx) == 0 {
			return 0
		}
		b := s.rx[0]
		s.rx = s.rx[1:]
		return b
	case 1:
		if s.lcr&nsLCRDLAB != 0 {
			return s.dlm
		}
		return s.ier
	case 2:
		iir := s.iir()
		if iir&0x0f == 0x02 {
			s.thrPending = false
		}
		return iir
	case 3:
		return s.lcr
	case 4:
		return s.mcr
	case 5:
		lsr := s.lsrErr | nsLSRTHRE
		if !s.busy.poll() {
			lsr |= nsLSRTEMT
		}
		if len(s.rx) > 0 {
			lsr |= nsLSRDR
		}
		s.lsrErr = 0
		return lsr
	case 6:
		v := s.msrDelta | 0xb0
		s.msrDelta = 0
		return v
	case 7:
		return s.scr
	}
	return 0
}

func (s *NS16550) writeRegister(r uint8, v byte) {
	switch r {
	case 0:
		if s.lcr&nsLCRDLAB != 0 {
			s.dll = v
			return
		}
		if s.mcr&nsMCRLoop != 0 {
			s.push(v)
		} else {
			s.tx = append(s.tx, v)
		}
		s.thrPending = true
	case 1:
		if s.lcr&nsLCRDLAB != 0 {
			s.dlm = v
			return
		}
		if s.ier&nsIERTHRI == 0 && v&nsIERTHRI != 0 {
			s.thrPending = true
		}
		s.ier = v & 0x0f
	case 2:
		if v&nsFCRClearRx != 0 || (v^s.fcr)&nsFCREnable != 0 {
			s.rx = nil
		}
		s.fcr = v &^ 0x06
	case 3:
		s.lcr = v
	case 4:
		s.mcr = v & 0x1f
	case 7:
		s.scr = v
	}
}

// iir computes the interrupt identification in 16550 priority order.
func (s *NS16550) iir() byte {
	var fifo byte
	if s.fcr&nsFCREnable != 0 {
		fifo = 0xc0
	}
	switch {
	case s.ier&nsIERRLSI != 0 && s.lsrErr&nsLSRErrors != 0:
		return fifo | 0x06
	case s.ier&nsIERRDI != 0 && len(s.rx) >= s.trigger():
		return fifo | 0x04
	case s.ier&nsIERRDI != 0 && len(s.rx) > 0:
		return fifo | 0x0c
	case s.ier&nsIERTHRI != 0 && s.thrPending:
		return fifo | 0x02
	case s.ier&nsIERMSI != 0 && s.msrDelta != 0:
		return fifo | 0x00
	}
	return fifo | 0x01
}

func (s *NS16550) trigger() int {
	if s.fcr&nsFCREnable == 0 {
		return 1
	}
	return nsTriggers[s.fcr>>6]
}

// Receive queues bytes on the line. Bytes that do not fit in the FIFO are
// lost and raise an overrun.
func (s *NS16550) Receive(p ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range p {
		s.push(b)
	}
}

// InjectLineStatus raises LSR error bits (OE, PE, FE, BI).
func (s *NS16550) InjectLineStatus(bits byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lsrErr |= bits & nsLSRErrors
}

// ModemDelta raises MSR delta bits, which assert the modem-status interrupt.
func (s *NS16550) ModemDelta(bits byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msrDelta |= bits & 0x0f
}

func (s *NS16550) Transmitted() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.tx
	s.tx = nil
	return out
}

func (s *NS16550) IRQ() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iir()&0x01 == 0
}

func (s *NS16550) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *NS16550) HoldBusy(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = busy(n)
}

// Divisor returns the programmed divisor latch.
func (s *NS16550) Divisor() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint16(s.dlm)<<8 | uint16(s.dll)
}

var _ Port = (*NS16550)(nil)
