package sim

import "sync"

const (
	plDR    = 0x000
	plRSR   = 0x004
	plFR    = 0x018
	plILPR  = 0x020
	plIBRD  = 0x024
	plFBRD  = 0x028
	plLCRH  = 0x02c
	plCR    = 0x030
	plIFLS  = 0x034
	plIMSC  = 0x038
	plRIS   = 0x03c
	plMIS   = 0x040
	plICR   = 0x044
	plDMACR = 0x048

	plFRBUSY = 1 << 3
	plFRRXFE = 1 << 4
	plFRTXFF = 1 << 5
	plFRRXFF = 1 << 6
	plFRTXFE = 1 << 7

	plLCRHFEN = 1 << 4

	plCRUARTEN = 1 << 0
	plCRLBE    = 1 << 7
	plCRTXE    = 1 << 8
	plCRRXE    = 1 << 9

	plIntRX = 1 << 4
	plIntTX = 1 << 5
	plIntRT = 1 << 6
	plIntFE = 1 << 7
	plIntPE = 1 << 8
	plIntBE = 1 << 9
	plIntOE = 1 << 10

	// Per-character error flags, as they appear in DR bits 11:8.
	FlagFE = 1 << 0
	FlagPE = 1 << 1
	FlagBE = 1 << 2
	FlagOE = 1 << 3
)

// PL011 models an ARM PrimeCell UART with a configurable FIFO depth.
// Receive interrupts are level-sensitive on the FIFO fill; transmit and error
// interrupts latch until cleared through ICR.
type PL011 struct {
	mu sync.Mutex

	base  uintptr
	depth int

	rx []uint16 // data in bits 7:0, error flags in bits 11:8
	tx []byte

	rsr, ilpr, ibrd, fbrd, lcrh, cr, ifls, imsc, dmacr uint32

	latched uint32 // TX and error raw interrupt bits
	busy    busy
	txFull  bool
	writes  int
}

// NewPL011 returns a model at base with depth-entry FIFOs, in the PL011
// reset state.
func NewPL011(base uintptr, depth int) *PL011 {
	return &PL011{base: base, depth: depth, cr: plCRTXE | plCRRXE, ifls: 0x12}
}

func (s *PL011) Base() uintptr { return s.base }
func (s *PL011) Barrier()      {}

func (s *PL011) Load8(off uintptr) uint8     { return uint8(s.Load32(off)) }
func (s *PL011) Store8(off uintptr, v uint8) { s.Store32(off, uint32(v)) }

func (s *PL011) Load32(off uintptr) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch off {
	case plDR:
		if len(s.rx) == 0 {
			return 0
		}
		e := s.rx[0]
		s.rx = s.rx[1:]
		s.rsr = uint32(e>>8) & 0x0f
		return uint32(e)
	case plRSR:
		return s.rsr
	case plFR:
		return s.fr()
	case plILPR:
		return s.ilpr
	case plIBRD:
		return s.ibrd
	case plFBRD:
		return s.fbrd
	case plLCRH:
		return s.lcrh
	case plCR:
		return s.cr
	case plIFLS:
		return s.ifls
	case plIMSC:
		return s.imsc
	case plRIS:
		return s.ris()
	case plMIS:
		return s.ris() & s.imsc
	case plDMACR:
		return s.dmacr
	}
	return 0
}

func (s *PL011) Store32(off uintptr, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	switch off {
	case plDR:
		s.transmit(byte(v))
	case plRSR:
		s.rsr = 0
	case plILPR:
		s.ilpr = v & 0xff
	case plIBRD:
		s.ibrd = v & 0xffff
	case plFBRD:
		s.fbrd = v & 0x3f
	case plLCRH:
		if (v^s.lcrh)&plLCRHFEN != 0 {
			s.rx = nil
		}
		s.lcrh = v & 0xff
	case plCR:
		s.cr = v & 0xff87
	case plIFLS:
		s.ifls = v & 0x3f
	case plIMSC:
		s.imsc = v & 0x7ff
	case plICR:
		s.latched &^= v
	case plDMACR:
		s.dmacr = v & 0x7
	}
}

func (s *PL011) fifoDepth() int {
	if s.lcrh&plLCRHFEN != 0 {
		return s.depth
	}
	return 1
}

func (s *PL011) fr() uint32 {
	var fr uint32
	if s.busy.poll() {
		fr |= plFRBUSY
	} else {
		fr |= plFRTXFE
	}
	if len(s.rx) == 0 {
		fr |= plFRRXFE
	}
	if len(s.rx) >= s.fifoDepth() {
		fr |= plFRRXFF
	}
	if s.txFull {
		fr |= plFRTXFF
	}
	return fr
}

// rxTrigger returns the receive FIFO fill that asserts RXRIS.
func (s *PL011) rxTrigger() int {
	if s.lcrh&plLCRHFEN == 0 {
		return 1
	}
	eighths := [...]int{1, 2, 4, 6, 7}
	sel := int(s.ifls>>3) & 0x7
	if sel >= len(eighths) {
		sel = len(eighths) - 1
	}
	if t := s.depth * eighths[sel] / 8; t > 0 {
		return t
	}
	return 1
}

func (s *PL011) ris() uint32 {
	r := s.latched
	switch n := len(s.rx); {
	case n >= s.rxTrigger():
		r |= plIntRX
	case n > 0:
		r |= plIntRT
	}
	return r
}

func (s *PL011) transmit(b byte) {
	if s.cr&plCRUARTEN == 0 || s.cr&plCRTXE == 0 || s.txFull {
		return
	}
	if s.cr&plCRLBE != 0 {
		if s.cr&plCRRXE != 0 {
			s.push(uint16(b))
		}
	} else {
		s.tx = append(s.tx, b)
	}
	s.latched |= plIntTX
}

func (s *PL011) push(e uint16) {
	if len(s.rx) >= s.fifoDepth() {
		s.rx[len(s.rx)-1] |= FlagOE << 8
		s.latched |= plIntOE
		return
	}
	s.rx = append(s.rx, e)
	flags := e >> 8
	if flags&FlagFE != 0 {
		s.latched |= plIntFE
	}
	if flags&FlagPE != 0 {
		s.latched |= plIntPE
	}
	if flags&FlagBE != 0 {
		s.latched |= plIntBE
	}
	if flags&FlagOE != 0 {
		s.latched |= plIntOE
	}
}

func (s *PL011) Receive(p ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range p {
		s.push(uint16(b))
	}
}

// ReceiveWithError queues b with per-character error flags (FlagFE etc).
func (s *PL011) ReceiveWithError(b byte, flags uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(uint16(b) | uint16(flags&0x0f)<<8)
}

func (s *PL011) Transmitted() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.tx
	s.tx = nil
	return out
}

func (s *PL011) IRQ() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ris()&s.imsc != 0
}

func (s *PL011) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *PL011) HoldBusy(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = busy(n)
}

// HoldTxFull makes the transmit FIFO report full and refuse data.
func (s *PL011) HoldTxFull(full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txFull = full
}

// Divisor returns IBRD and FBRD.
func (s *PL011) Divisor() (ibrd, fbrd uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ibrd, s.fbrd
}

var _ Port = (*PL011)(nil)
