package uartx

import "github.com/jangala-dev/uartcore/bits"

// NS16550 register indices. The byte offset is index << reg-shift.
const (
	ns16550RBR = 0 // read, DLAB=0
	ns16550THR = 0 // write, DLAB=0
	ns16550DLL = 0 // DLAB=1
	ns16550IER = 1 // DLAB=0
	ns16550DLM = 1 // DLAB=1
	ns16550IIR = 2 // read
	ns16550FCR = 2 // write
	ns16550LCR = 3
	ns16550MCR = 4
	ns16550LSR = 5
	ns16550MSR = 6
	ns16550SCR = 7
)

// IER
const (
	ns16550IERRDI  uint8 = 0x01
	ns16550IERTHRI uint8 = 0x02
	ns16550IERRLSI uint8 = 0x04
	ns16550IERMSI  uint8 = 0x08
)

// IIR: bit 0 clear means an interrupt is pending and bits 3:1 name it.
const (
	ns16550IIRNoInt uint8 = 0x01
	ns16550IIRID    uint8 = 0x0e
	ns16550IIRRLSI  uint8 = 0x06
	ns16550IIRRDI   uint8 = 0x04
	ns16550IIRCTI   uint8 = 0x0c
	ns16550IIRTHRI  uint8 = 0x02
	ns16550IIRMSI   uint8 = 0x00
	ns16550IIRFIFOs uint8 = 0xc0
)

// FCR
const (
	ns16550FCREnable    uint8 = 0x01
	ns16550FCRClearRx   uint8 = 0x02
	ns16550FCRClearTx   uint8 = 0x04
	ns16550FCRTrigger1  uint8 = 0x00
	ns16550FCRTrigger4  uint8 = 0x40
	ns16550FCRTrigger8  uint8 = 0x80
	ns16550FCRTrigger14 uint8 = 0xc0
)

var ns16550FCRTrigger = bits.Span[uint8](6, 2)

// LCR
var (
	ns16550LCRWLEN = bits.Span[uint8](0, 2)
	ns16550LCRSTOP = bits.Bit[uint8](2)
	ns16550LCRPEN  = bits.Bit[uint8](3)
	ns16550LCREPS  = bits.Bit[uint8](4)
	ns16550LCRSPS  = bits.Bit[uint8](5)
	ns16550LCRSBRK = bits.Bit[uint8](6)
	ns16550LCRDLAB = bits.Bit[uint8](7)
)

// MCR
var (
	ns16550MCRDTR  = bits.Bit[uint8](0)
	ns16550MCRRTS  = bits.Bit[uint8](1)
	ns16550MCROUT1 = bits.Bit[uint8](2)
	ns16550MCROUT2 = bits.Bit[uint8](3)
	ns16550MCRLOOP = bits.Bit[uint8](4)
)

// LSR
const (
	ns16550LSRDR    uint8 = 0x01
	ns16550LSROE    uint8 = 0x02
	ns16550LSRPE    uint8 = 0x04
	ns16550LSRFE    uint8 = 0x08
	ns16550LSRBI    uint8 = 0x10
	ns16550LSRTHRE  uint8 = 0x20
	ns16550LSRTEMT  uint8 = 0x40
	ns16550LSRFIFOE uint8 = 0x80

	ns16550LSRErrors = ns16550LSROE | ns16550LSRPE | ns16550LSRFE | ns16550LSRBI
)

// ns16550FIFODepth is the receive FIFO depth of a 16550A.
const ns16550FIFODepth = 16

// Receive trigger tiers, the lowest requested level that selects each, and
// their FCR encodings. A request of 12 or more selects the 14-byte tier.
var (
	ns16550Tiers    = []uint8{1, 4, 8, 14}
	ns16550TierFrom = []uint8{0, 4, 8, 12}
	ns16550TierBits = []uint8{ns16550FCRTrigger1, ns16550FCRTrigger4, ns16550FCRTrigger8, ns16550FCRTrigger14}
)

// ns16550LineCtrl is a typed view of the line control register.
type ns16550LineCtrl uint8

func (r ns16550LineCtrl) dataBits() DataBits { return DataBits(ns16550LCRWLEN.Get(uint8(r)) + 5) }

func (r ns16550LineCtrl) withDataBits(d DataBits) ns16550LineCtrl {
	return ns16550LineCtrl(ns16550LCRWLEN.With(uint8(r), uint8(d-5)))
}

func (r ns16550LineCtrl) stopBits() StopBits {
	if ns16550LCRSTOP.IsSet(uint8(r)) {
		return StopBitsTwo
	}
	return StopBitsOne
}

func (r ns16550LineCtrl) withStopBits(s StopBits) ns16550LineCtrl {
	return ns16550LineCtrl(ns16550LCRSTOP.Assign(uint8(r), s == StopBitsTwo))
}

func (r ns16550LineCtrl) parity() Parity {
	return decodeParity(
		ns16550LCRPEN.IsSet(uint8(r)),
		ns16550LCREPS.IsSet(uint8(r)),
		ns16550LCRSPS.IsSet(uint8(r)),
	)
}

func (r ns16550LineCtrl) withParity(p Parity) ns16550LineCtrl {
	en, even, stick := p.encode()
	v := uint8(r)
	v = ns16550LCRPEN.Assign(v, en)
	v = ns16550LCREPS.Assign(v, even)
	v = ns16550LCRSPS.Assign(v, stick)
	return ns16550LineCtrl(v)
}

// ns16550Errors decodes the error bits of an LSR value.
func ns16550Errors(lsr, data uint8) (TransferError, bool) {
	return pickError(
		lsr&ns16550LSROE != 0,
		lsr&ns16550LSRPE != 0,
		lsr&ns16550LSRFE != 0,
		lsr&ns16550LSRBI != 0,
		data,
	)
}
