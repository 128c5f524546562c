package uartx

import "github.com/jangala-dev/uartcore/bits"

// PL011 register offsets.
const (
	pl011DR    = 0x000
	pl011RSR   = 0x004 // read: receive status, write: error clear (ECR)
	pl011FR    = 0x018
	pl011ILPR  = 0x020
	pl011IBRD  = 0x024
	pl011FBRD  = 0x028
	pl011LCRH  = 0x02c
	pl011CR    = 0x030
	pl011IFLS  = 0x034
	pl011IMSC  = 0x038
	pl011RIS   = 0x03c
	pl011MIS   = 0x040
	pl011ICR   = 0x044
	pl011DMACR = 0x048
)

// UARTDR
var (
	pl011DRData = bits.Span[uint32](0, 8)
	pl011DRFE   = bits.Bit[uint32](8)
	pl011DRPE   = bits.Bit[uint32](9)
	pl011DRBE   = bits.Bit[uint32](10)
	pl011DROE   = bits.Bit[uint32](11)
)

// UARTFR
var (
	pl011FRCTS  = bits.Bit[uint32](0)
	pl011FRDSR  = bits.Bit[uint32](1)
	pl011FRDCD  = bits.Bit[uint32](2)
	pl011FRBUSY = bits.Bit[uint32](3)
	pl011FRRXFE = bits.Bit[uint32](4)
	pl011FRTXFF = bits.Bit[uint32](5)
	pl011FRRXFF = bits.Bit[uint32](6)
	pl011FRTXFE = bits.Bit[uint32](7)
	pl011FRRI   = bits.Bit[uint32](8)
)

// UARTIBRD / UARTFBRD
var (
	pl011IBRDDivInt  = bits.Span[uint32](0, 16)
	pl011FBRDDivFrac = bits.Span[uint32](0, 6)
)

// UARTLCR_H
var (
	pl011LCRHBRK  = bits.Bit[uint32](0)
	pl011LCRHPEN  = bits.Bit[uint32](1)
	pl011LCRHEPS  = bits.Bit[uint32](2)
	pl011LCRHSTP2 = bits.Bit[uint32](3)
	pl011LCRHFEN  = bits.Bit[uint32](4)
	pl011LCRHWLEN = bits.Span[uint32](5, 2)
	pl011LCRHSPS  = bits.Bit[uint32](7)
)

// UARTCR
var (
	pl011CRUARTEN = bits.Bit[uint32](0)
	pl011CRLBE    = bits.Bit[uint32](7)
	pl011CRTXE    = bits.Bit[uint32](8)
	pl011CRRXE    = bits.Bit[uint32](9)
	pl011CRDTR    = bits.Bit[uint32](10)
	pl011CRRTS    = bits.Bit[uint32](11)
)

// UARTIFLS
var (
	pl011IFLSTX = bits.Span[uint32](0, 3)
	pl011IFLSRX = bits.Span[uint32](3, 3)
)

// Interrupt bits, shared by IMSC, RIS, MIS and ICR.
const (
	pl011IntRI  uint32 = 1 << 0
	pl011IntCTS uint32 = 1 << 1
	pl011IntDCD uint32 = 1 << 2
	pl011IntDSR uint32 = 1 << 3
	pl011IntRX  uint32 = 1 << 4
	pl011IntTX  uint32 = 1 << 5
	pl011IntRT  uint32 = 1 << 6
	pl011IntFE  uint32 = 1 << 7
	pl011IntPE  uint32 = 1 << 8
	pl011IntBE  uint32 = 1 << 9
	pl011IntOE  uint32 = 1 << 10

	pl011IntErrors = pl011IntFE | pl011IntPE | pl011IntBE | pl011IntOE
	pl011IntAll    = 0x7ff
)

// pl011LineCtrl is a typed view of UARTLCR_H.
type pl011LineCtrl uint32

func (r pl011LineCtrl) dataBits() DataBits { return DataBits(pl011LCRHWLEN.Get(uint32(r)) + 5) }

func (r pl011LineCtrl) withDataBits(d DataBits) pl011LineCtrl {
	return pl011LineCtrl(pl011LCRHWLEN.With(uint32(r), uint32(d-5)))
}

func (r pl011LineCtrl) stopBits() StopBits {
	if pl011LCRHSTP2.IsSet(uint32(r)) {
		return StopBitsTwo
	}
	return StopBitsOne
}

func (r pl011LineCtrl) withStopBits(s StopBits) pl011LineCtrl {
	return pl011LineCtrl(pl011LCRHSTP2.Assign(uint32(r), s == StopBitsTwo))
}

func (r pl011LineCtrl) parity() Parity {
	return decodeParity(
		pl011LCRHPEN.IsSet(uint32(r)),
		pl011LCRHEPS.IsSet(uint32(r)),
		pl011LCRHSPS.IsSet(uint32(r)),
	)
}

func (r pl011LineCtrl) withParity(p Parity) pl011LineCtrl {
	en, even, stick := p.encode()
	v := uint32(r)
	v = pl011LCRHPEN.Assign(v, en)
	v = pl011LCRHEPS.Assign(v, even)
	v = pl011LCRHSPS.Assign(v, stick)
	return pl011LineCtrl(v)
}

func (r pl011LineCtrl) fifoEnabled() bool { return pl011LCRHFEN.IsSet(uint32(r)) }

func (r pl011LineCtrl) withFIFO(on bool) pl011LineCtrl {
	return pl011LineCtrl(pl011LCRHFEN.Assign(uint32(r), on))
}

// pl011Errors decodes the per-character error bits of a UARTDR value.
func pl011Errors(dr uint32) (TransferError, bool) {
	return pickError(
		pl011DROE.IsSet(dr),
		pl011DRPE.IsSet(dr),
		pl011DRFE.IsSet(dr),
		pl011DRBE.IsSet(dr),
		byte(pl011DRData.Get(dr)),
	)
}
