//go:build !uartxdebug

package uartx

func (s *Stats) isr(Cause)              {}
func (s *Stats) lineError(TransferKind) {}
func (s *Stats) staged(bool, uint8)     {}
func (s *Stats) notify(bool)            {}
func (s *Stats) readWait()              {}
func (s *Stats) spuriousWake()          {}
func (s *Stats) waitTimeout()           {}
func (s *Stats) busyTimeout()           {}
func (s *Stats) mismatch()              {}
