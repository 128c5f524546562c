package uartx

// Cause is a set of portable interrupt causes. Chip-specific causes such as
// modem-status changes are absorbed; receive-path line errors report
// CauseReceiveReady so the consumer reads and sees the error.
type Cause uint8

const (
	CauseReceiveReady Cause = 1 << iota
	CauseTransmitEmpty

	CauseNone Cause = 0
	CauseAll        = CauseReceiveReady | CauseTransmitEmpty
)

// Has reports whether every cause in m is present in c.
func (c Cause) Has(m Cause) bool { return c&m == m && m != 0 }

// Empty reports whether no cause is set.
func (c Cause) Empty() bool { return c == 0 }

func (c Cause) String() string {
	switch c & CauseAll {
	case CauseNone:
		return "none"
	case CauseReceiveReady:
		return "rx"
	case CauseTransmitEmpty:
		return "tx"
	default:
		return "rx|tx"
	}
}
