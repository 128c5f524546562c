package uartx

// StagingCapacity is the number of received bytes the staging buffer holds
// between an interrupt and the next read.
const StagingCapacity = 64

// RingBuffer is the fixed-capacity staging FIFO that decouples byte arrival in
// interrupt context from consumer reads. It is filled only by the interrupt
// engine and drained only by reads; both run inside the Device's critical
// section, so the indices need no further synchronisation.
type RingBuffer struct {
	buf  [StagingCapacity]byte
	head uint8 // total puts, wrapping
	tail uint8 // total gets, wrapping
}

// Size returns the total capacity of the buffer in bytes.
func (rb *RingBuffer) Size() uint8 {
	return StagingCapacity
}

// Used returns how many bytes in buffer have been used.
func (rb *RingBuffer) Used() uint8 {
	return rb.head - rb.tail
}

// Put stores a byte in the buffer. If the buffer is already full, it returns false.
func (rb *RingBuffer) Put(val byte) bool {
	if rb.Used() == StagingCapacity {
		return false
	}
	rb.buf[rb.head%StagingCapacity] = val
	rb.head++
	return true
}

// Get returns the oldest byte from the buffer. If the buffer is empty, it returns (0, false).
func (rb *RingBuffer) Get() (byte, bool) {
	if rb.Used() == 0 {
		return 0, false
	}
	v := rb.buf[rb.tail%StagingCapacity]
	rb.tail++
	return v, true
}

// Clear resets the head and tail pointers to zero.
func (rb *RingBuffer) Clear() {
	rb.head = 0
	rb.tail = 0
}

// errorLatch is the single pending-error slot shared between the interrupt
// engine and readers. A new error replaces the pending one only if it has a
// higher priority. ahead counts the staged bytes that were received before
// the error; it is due once they have been read.
type errorLatch struct {
	err   TransferError
	set   bool
	ahead uint8
}

// raise latches err ahead of everything staged.
func (l *errorLatch) raise(err TransferError) { l.raiseAfter(err, 0) }

// raiseAfter latches err behind ahead staged bytes. A merged error keeps the
// earlier of the two positions.
func (l *errorLatch) raiseAfter(err TransferError, ahead uint8) {
	if !l.set {
		l.err, l.set, l.ahead = err, true, ahead
		return
	}
	if ahead < l.ahead {
		l.ahead = ahead
	}
	if l.err.Kind > err.Kind {
		l.err = err
	}
}

// due reports whether the latched error is the next item to read.
func (l *errorLatch) due() bool { return l.set && l.ahead == 0 }

// passed records that one staged byte ahead of the error was read.
func (l *errorLatch) passed() {
	if l.ahead > 0 {
		l.ahead--
	}
}

func (l *errorLatch) take() (TransferError, bool) {
	if !l.set {
		return TransferError{}, false
	}
	err := l.err
	l.clear()
	return err, true
}

func (l *errorLatch) clear() { l.err, l.set, l.ahead = TransferError{}, false, 0 }

// rxState is everything that crosses the main-line/interrupt boundary.
type rxState struct {
	cs      criticalSection
	latched errorLatch
	staged  RingBuffer
}

// latch records a line error at the current end of the staging buffer.
// Callers hold the critical section.
func (rx *rxState) latch(err TransferError) {
	rx.latched.raiseAfter(err, rx.staged.Used())
}

// dropStaged discards staged bytes. A latched error becomes due.
func (rx *rxState) dropStaged() {
	rx.staged.Clear()
	rx.latched.ahead = 0
}

// stage queues a byte received in interrupt context. On overflow the byte is
// captured in a latched overrun that is due ahead of everything staged.
// Callers hold the critical section.
func (rx *rxState) stage(b byte) bool {
	if rx.staged.Put(b) {
		return true
	}
	rx.latched.raise(TransferError{Kind: KindOverrun, Data: b, HasData: true})
	return false
}
